package models

import "time"

// Book is a catalog record. Price and Stock are the authoritative values read
// at cart and payment time; Rating and NumReviews are derived from reviews.
type Book struct {
	BookID        string    `json:"bookId" bson:"bookid"`
	Title         string    `json:"title" bson:"title"`
	Slug          string    `json:"slug" bson:"slug"`
	Description   string    `json:"description,omitempty" bson:"description,omitempty"`
	ISBN          string    `json:"isbn,omitempty" bson:"isbn,omitempty"`
	Image         string    `json:"image,omitempty" bson:"image,omitempty"`
	Banner        string    `json:"banner,omitempty" bson:"banner,omitempty"`
	Price         float64   `json:"price" bson:"price"`
	Stock         int       `json:"stock" bson:"stock"`
	Rating        float64   `json:"rating" bson:"rating"`
	NumReviews    int       `json:"numReviews" bson:"numreviews"`
	IsFeatured    bool      `json:"isFeatured" bson:"isfeatured"`
	AuthorIDs     []string  `json:"authorIds,omitempty" bson:"authorids,omitempty"`
	Genres        []string  `json:"genres,omitempty" bson:"genres,omitempty"`
	PublishedDate time.Time `json:"publishedDate" bson:"publisheddate"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedat"`
}

// Author is a catalog author record, linked from Book.AuthorIDs.
type Author struct {
	AuthorID  string    `json:"authorId" bson:"authorid"`
	Name      string    `json:"name" bson:"name"`
	Bio       string    `json:"bio,omitempty" bson:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdat"`
}
