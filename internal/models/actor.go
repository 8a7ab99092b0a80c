package models

// Role - роль участника, выполняющего действие
type Role string

const (
	RoleReporter  Role = "reporter"
	RoleVolunteer Role = "volunteer"
	RoleAuthority Role = "authority"
)

func (r Role) Valid() bool {
	switch r {
	case RoleReporter, RoleVolunteer, RoleAuthority:
		return true
	}
	return false
}

// Actor передается явно в каждую операцию, изменяющую состояние
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAuthority() bool {
	return a.Role == RoleAuthority
}

// SystemActorTimeout закрывает устаревшие тревоги по таймауту
const SystemActorTimeout = "system:timeout"
