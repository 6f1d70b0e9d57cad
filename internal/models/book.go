package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books"`

	ID        string    `bun:"id,pk" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Year      int       `bun:"year,nullzero" json:"year,omitempty"`
	Publisher string    `bun:"publisher,nullzero" json:"publisher,omitempty"`
	Pages     int       `bun:"pages,nullzero" json:"pages,omitempty"`
	CoverURL  string    `bun:"cover_url,nullzero" json:"cover_url,omitempty"`
	Summary   string    `bun:"summary,nullzero" json:"summary,omitempty"`
	ISBN      string    `bun:"isbn,nullzero,unique" json:"isbn,omitempty"`
	Copies    int       `bun:"copies,notnull" json:"copies"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`

	Authors []Author `bun:"m2m:book_authors,join:Book=Author" json:"authors,omitempty"`
	Genres  []Genre  `bun:"m2m:book_genres,join:Book=Genre" json:"genres,omitempty"`
}

type Author struct {
	bun.BaseModel `bun:"table:authors"`

	ID   string `bun:"id,pk" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type Genre struct {
	bun.BaseModel `bun:"table:genres"`

	ID   string `bun:"id,pk" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors"`

	BookID   string  `bun:"book_id,pk"`
	AuthorID string  `bun:"author_id,pk"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id"`
}

type BookGenre struct {
	bun.BaseModel `bun:"table:book_genres"`

	BookID  string `bun:"book_id,pk"`
	GenreID string `bun:"genre_id,pk"`
	Book    *Book  `bun:"rel:belongs-to,join:book_id=id"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id"`
}

// BookRequest carries the fields accepted when creating or updating a
// book. Authors and genres are given by name and upserted.
type BookRequest struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Genres    []string `json:"genres"`
	Year      int      `json:"year"`
	Publisher string   `json:"publisher"`
	Pages     int      `json:"pages"`
	CoverURL  string   `json:"cover_url"`
	Summary   string   `json:"summary"`
	ISBN      string   `json:"isbn"`
	Copies    int      `json:"copies"`
}

type BookFilter struct {
	Term         string
	Author       string
	Genre        string
	Year         int
	Publisher    string
	OnlyInStock  bool
	OnlyBorrowed bool
}
