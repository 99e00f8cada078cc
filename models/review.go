package models

import "time"

// Review is one user's review of one book; a user gets at most one per book
// and resubmitting updates it in place.
type Review struct {
	ReviewID    string    `json:"reviewId" bson:"reviewid"`
	BookID      string    `json:"bookId" bson:"bookid"`
	UserID      string    `json:"userId" bson:"userid"`
	UserName    string    `json:"userName,omitempty" bson:"username,omitempty"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Rating      int       `json:"rating" bson:"rating"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedat"`
}
