package models

import "time"

// Destination table names, one per source kind.
const (
	TableBooks     = "books"
	TableQuotes    = "quotes"
	TableAddresses = "api_addresses"
	TablePartners  = "partners"
)

// Row is a typed, source-specific canonical record with a stable key.
// Rows are created by the transformer and consumed exactly once by the
// writer (or dropped by the dedup index). Columns and Values are aligned
// slices describing the upsert payload; the first column is always the
// primary key.
type Row interface {
	// Key returns the stable identifier, deterministic over the raw input
	Key() string
	// Table returns the destination table name
	Table() string
	// Columns returns the destination column names, primary key first
	Columns() []string
	// Values returns the column values aligned with Columns
	Values() []interface{}
}

// Book is a canonical catalog book row. SKU is derived from the title.
type Book struct {
	SKU        string
	Title      string
	PriceGBP   float64
	PriceEUR   float64
	Rating     int // 1..5, 0 means unknown (stored as NULL)
	Category   string
	ImageURL   string
	ImageRef   string // object store reference, set after artifact upload
	ProductURL string
}

func (b *Book) Key() string   { return b.SKU }
func (b *Book) Table() string { return TableBooks }

func (b *Book) Columns() []string {
	return []string{"sku", "title", "price_gbp", "price_eur", "rating", "category", "image_url", "image_ref", "product_url"}
}

func (b *Book) Values() []interface{} {
	return []interface{}{
		b.SKU, b.Title, b.PriceGBP, b.PriceEUR,
		nullIfZeroInt(b.Rating), nullIfEmpty(b.Category),
		b.ImageURL, nullIfEmpty(b.ImageRef), b.ProductURL,
	}
}

// Quote is a canonical quote row keyed by a digest of the raw text.
type Quote struct {
	ID             string
	Text           string
	Author         string
	Tags           []string
	TextNormalized string
	TagsNormalized []string
}

func (q *Quote) Key() string   { return q.ID }
func (q *Quote) Table() string { return TableQuotes }

func (q *Quote) Columns() []string {
	return []string{"id", "text", "author", "tags", "text_normalized", "tags_normalized"}
}

func (q *Quote) Values() []interface{} {
	return []interface{}{q.ID, q.Text, q.Author, q.Tags, q.TextNormalized, q.TagsNormalized}
}

// Address is a canonical geocoding result row. The upstream result id is
// used when present, otherwise a stable digest of label+postcode+city.
type Address struct {
	ID        string
	Label     string
	Score     float64
	Type      string
	City      string
	Postcode  string
	Context   string
	Latitude  *float64
	Longitude *float64
	Query     string
}

func (a *Address) Key() string   { return a.ID }
func (a *Address) Table() string { return TableAddresses }

func (a *Address) Columns() []string {
	return []string{"id", "label", "score", "type", "city", "postcode", "context", "latitude", "longitude", "query"}
}

func (a *Address) Values() []interface{} {
	return []interface{}{
		a.ID, a.Label, a.Score, a.Type, a.City, a.Postcode, a.Context,
		a.Latitude, a.Longitude, a.Query,
	}
}

// Partner is a canonical partner-bookshop row. The three contact fields
// hold SHA-256 pseudonyms; plaintext contact data never survives the
// transformer.
type Partner struct {
	ID               string
	Name             string
	Address          string
	Postcode         string
	City             string
	ContactNameHash  string
	ContactEmailHash string
	ContactPhoneHash string
	AnnualRevenue    *float64
	PartnershipDate  *time.Time
	Specialty        string
	Latitude         *float64
	Longitude        *float64
}

func (p *Partner) Key() string   { return p.ID }
func (p *Partner) Table() string { return TablePartners }

func (p *Partner) Columns() []string {
	return []string{
		"id", "nom_librairie", "adresse", "code_postal", "ville",
		"contact_nom_hash", "contact_email_hash", "contact_telephone_hash",
		"ca_annuel", "date_partenariat", "specialite", "latitude", "longitude",
	}
}

func (p *Partner) Values() []interface{} {
	return []interface{}{
		p.ID, p.Name, p.Address, p.Postcode, p.City,
		nullIfEmpty(p.ContactNameHash), nullIfEmpty(p.ContactEmailHash), nullIfEmpty(p.ContactPhoneHash),
		p.AnnualRevenue, p.PartnershipDate, nullIfEmpty(p.Specialty),
		p.Latitude, p.Longitude,
	}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
