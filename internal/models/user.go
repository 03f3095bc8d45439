package models

import "github.com/google/uuid"

// User представляет минимальную информацию о пользователе для API
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Country   string    `json:"country,omitempty"`
}

// Masked возвращает обезличенную копию пользователя: до принятия предложения
// обмена получатель видит только страну инициатора.
func (u *User) Masked() *User {
	if u == nil {
		return nil
	}
	return &User{Country: u.Country}
}
