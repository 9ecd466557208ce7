package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch возвращается, если пароль не соответствует хешу.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordHasher хеширует пароли и сравнивает их с хешем за постоянное время.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher реализует PasswordHasher на bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher создаёт хешер со стоимостью по умолчанию.
func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash возвращает bcrypt-хеш пароля.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare сравнивает пароль с хешем. Несовпадение даёт ErrPasswordMismatch,
// повреждённый хеш даёт исходную ошибку bcrypt.
func (h BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
