package models

// Book is a container of ledger entries: an account, a project, a trip.
type Book struct {
	LocalRecord

	Name        string
	Description string
	Category    string
	ImageRef    string
	Public      bool
	ShareToken  string
}

// BookFields is the business payload of a Book, the part exchanged with the
// remote authority and covered by the checksum.
type BookFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageRef    string `json:"image_ref"`
	Public      bool   `json:"public"`
	ShareToken  string `json:"share_token"`
}

// Fields extracts the business payload.
func (b *Book) Fields() BookFields {
	return BookFields{
		Name:        b.Name,
		Description: b.Description,
		Category:    b.Category,
		ImageRef:    b.ImageRef,
		Public:      b.Public,
		ShareToken:  b.ShareToken,
	}
}

// ApplyFields overwrites the business payload, leaving bookkeeping fields
// untouched.
func (b *Book) ApplyFields(f BookFields) {
	b.Name = f.Name
	b.Description = f.Description
	b.Category = f.Category
	b.ImageRef = f.ImageRef
	b.Public = f.Public
	b.ShareToken = f.ShareToken
}
