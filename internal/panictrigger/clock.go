package panictrigger

import "time"

// Clock откладывает действие с возможностью отмены
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	// Stop возвращает false, если действие уже запущено
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock использует таймеры рантайма
func RealClock() Clock {
	return realClock{}
}
