package validation

import "fmt"

type credentialsInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"min=6"`
}

// ValidateCredentials проверяет форму входа до обращения к хранилищу.
func ValidateCredentials(email, password string) error {
	verr := &Error{Message: "Invalid credentials."}

	in := credentialsInput{Email: email, Password: password}
	if err := collect(verr, validate.Struct(in), credentialsMessage); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}

	if !verr.empty() {
		return verr
	}
	return nil
}

func credentialsMessage(field, _ string) string {
	if field == "email" {
		return "Please enter a valid email address."
	}
	return "Password must be at least 6 characters."
}
