package service

import "fmt"

// StorageError сообщает о сбое хранилища при изменении счёта.
// Внутренний текст ошибки пользователю не показывается, см. Message.
type StorageError struct {
	Action string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s invoice: %v", e.Action, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Message возвращает безопасное для пользователя сообщение.
func (e *StorageError) Message() string {
	return fmt.Sprintf("Database Error: Failed to %s Invoice.", e.Action)
}
