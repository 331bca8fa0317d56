package entity

import (
	"time"
)

type User struct {
	ID        string    `json:"id" firestore:"uid"`
	Email     string    `json:"email" firestore:"email"`
	PhotoURL  string    `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`
	Online    bool      `json:"online" firestore:"online"`
	LastSeen  time.Time `json:"last_seen" firestore:"lastSeen"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
