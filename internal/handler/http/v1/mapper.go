package v1

import "github.com/shenikar/safety_dispatch/internal/models"

// DTOToReportDraft преобразует запрос в черновик отчета; заявитель берется из участника запроса
func DTOToReportDraft(dto CreateReportRequest, reporterID string) models.ReportDraft {
	draft := models.ReportDraft{
		ReporterID:   reporterID,
		Description:  dto.Description,
		Priority:     models.Priority(dto.Priority),
		IsAnonymous:  dto.IsAnonymous,
		HasVoiceNote: dto.HasVoiceNote,
		HasPhoto:     dto.HasPhoto,
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		draft.Location = &models.Location{
			Latitude:  *dto.Latitude,
			Longitude: *dto.Longitude,
			Address:   dto.Address,
		}
	}
	return draft
}

// optionalLocation собирает координаты, только если переданы обе
func optionalLocation(lat, lng *float64, address string) *models.Location {
	if lat == nil || lng == nil {
		return nil
	}
	return &models.Location{Latitude: *lat, Longitude: *lng, Address: address}
}

func locationResponse(loc *models.Location) *LocationResponse {
	if loc == nil {
		return nil
	}
	return &LocationResponse{Latitude: loc.Latitude, Longitude: loc.Longitude, Address: loc.Address}
}

// ModelToReportResponse преобразует отчет в DTO, скрывая заявителя анонимного отчета
func ModelToReportResponse(model *models.Report) *ReportResponse {
	resp := &ReportResponse{
		ID:                  model.ID,
		ReporterID:          model.ReporterID,
		Description:         model.Description,
		Location:            *locationResponse(&model.Location),
		Priority:            string(model.Priority),
		IsAnonymous:         model.IsAnonymous,
		HasVoiceNote:        model.HasVoiceNote,
		HasPhoto:            model.HasPhoto,
		Status:              string(model.Status),
		AssignedResponderID: model.AssignedResponderID,
		MatchAttempts:       model.MatchAttempts,
		ManualHandling:      model.ManualHandling,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
	if model.IsAnonymous {
		resp.ReporterID = ""
	}
	return resp
}

// ModelsToReportResponses преобразует слайс отчетов в слайс DTO
func ModelsToReportResponses(reports []*models.Report) []*ReportResponse {
	responses := make([]*ReportResponse, len(reports))
	for i, report := range reports {
		responses[i] = ModelToReportResponse(report)
	}
	return responses
}

func ModelToPanicAlertResponse(model *models.PanicAlert) *PanicAlertResponse {
	responders := model.ResponderIDs
	if responders == nil {
		responders = []string{}
	}
	return &PanicAlertResponse{
		ID:             model.ID,
		ReporterID:     model.ReporterID,
		Location:       locationResponse(model.Location),
		Status:         string(model.Status),
		ResponderIDs:   responders,
		ClosedBy:       model.ClosedBy,
		MatchAttempts:  model.MatchAttempts,
		ManualHandling: model.ManualHandling,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func ModelToResponderResponse(model *models.Responder) *ResponderResponse {
	return &ResponderResponse{
		ID:                    model.ID,
		Available:             model.Available,
		Location:              locationResponse(model.Location),
		AvailabilityChangedAt: model.AvailabilityChangedAt,
	}
}

func ModelsToContactResponses(contacts []*models.EmergencyContact) []*ContactResponse {
	responses := make([]*ContactResponse, len(contacts))
	for i, contact := range contacts {
		responses[i] = ModelToContactResponse(contact)
	}
	return responses
}

func ModelToContactResponse(model *models.EmergencyContact) *ContactResponse {
	return &ContactResponse{
		ID:           model.ID,
		UserID:       model.UserID,
		Name:         model.Name,
		PhoneNumber:  model.PhoneNumber,
		Relationship: model.Relationship,
	}
}

func claimResponse(outcome models.ClaimOutcome) ClaimResponse {
	if outcome == models.ClaimWon {
		return ClaimResponse{Outcome: string(outcome)}
	}
	return ClaimResponse{Outcome: string(models.ClaimLost), Message: "already being handled"}
}
