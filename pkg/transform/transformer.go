// Package transform maps raw records into canonical rows: normalization,
// numeric coercion with validation, currency conversion, stable-key
// derivation, and pseudonymization of partner contact fields. Each raw
// record yields exactly zero or one canonical row; malformed records are
// skipped with a recorded reason via DropError, never aborting the run
// on their own.
package transform

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tributary-data/tributary/pkg/models"
)

// dateLayouts are the partnership date formats accepted from the partner
// spreadsheet, in the order they are tried.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01-02-06",
	"Jan 2, 2006",
}

// Transformer holds the normalization constants applied to every record.
// All methods are pure: no I/O, no randomness, no clock reads in key or
// digest derivation, so re-running on identical input reproduces
// identical rows.
type Transformer struct {
	gbpToEUR    float64
	maxPriceGBP float64
}

// New creates a Transformer with the given currency rate and price bound.
func New(gbpToEUR, maxPriceGBP float64) *Transformer {
	return &Transformer{gbpToEUR: gbpToEUR, maxPriceGBP: maxPriceGBP}
}

// Book maps a raw catalog item to a canonical book row. The price must
// parse and fall in (0, maxPriceGBP]; a rating outside 1..5 is stored as
// unknown rather than dropping the row.
func (t *Transformer) Book(rec models.RawRecord) (*models.Book, error) {
	title := rec.String("title")
	if NormalizeText(title) == "" {
		return nil, Drop("missing title")
	}

	priceGBP, err := parsePrice(rec.String("price"))
	if err != nil {
		return nil, Drop("invalid price")
	}
	if priceGBP <= 0 || priceGBP > t.maxPriceGBP {
		return nil, Drop("price out of range")
	}

	rating, _ := rec.Int("rating")
	if rating < 1 || rating > 5 {
		rating = 0
	}

	return &models.Book{
		SKU:        models.StableID(title),
		Title:      NormalizeText(title),
		PriceGBP:   priceGBP,
		PriceEUR:   round2(priceGBP * t.gbpToEUR),
		Rating:     rating,
		Category:   strings.ToLower(NormalizeText(rec.String("category"))),
		ImageURL:   NormalizeText(rec.String("image_url")),
		ProductURL: NormalizeText(rec.String("product_url")),
	}, nil
}

// Quote maps a raw quote to a canonical quote row. A quote whose text
// normalizes to nothing is dropped.
func (t *Transformer) Quote(rec models.RawRecord) (*models.Quote, error) {
	text := rec.String("text")
	textNorm := NormalizeText(text)
	if textNorm == "" {
		return nil, Drop("empty text")
	}

	tags := rec.Strings("tags")
	return &models.Quote{
		ID:             models.StableID(text),
		Text:           text,
		Author:         NormalizeText(rec.String("author")),
		Tags:           tags,
		TextNormalized: textNorm,
		TagsNormalized: NormalizeTags(tags),
	}, nil
}

// Address maps a raw geocoding result to a canonical address row. The
// upstream identifier is kept when present; otherwise a stable digest of
// label, postcode, and city stands in.
func (t *Transformer) Address(rec models.RawRecord) (*models.Address, error) {
	label := NormalizeText(rec.String("label"))
	if label == "" {
		return nil, Drop("empty label")
	}

	id := rec.String("id")
	if id == "" {
		id = models.StableID(label, rec.String("postcode"), rec.String("city"))
	}

	score, _ := rec.Float("score")

	return &models.Address{
		ID:        id,
		Label:     label,
		Score:     score,
		Type:      NormalizeText(rec.String("type")),
		City:      NormalizeText(rec.String("city")),
		Postcode:  NormalizeText(rec.String("postcode")),
		Context:   NormalizeText(rec.String("context")),
		Latitude:  optFloat(rec, "latitude"),
		Longitude: optFloat(rec, "longitude"),
		Query:     NormalizeText(rec.String("query")),
	}, nil
}

// Partner maps a raw spreadsheet row to a canonical partner row. The
// three contact fields are replaced by deterministic SHA-256 digests
// before the row leaves this stage; the plaintext values appear in no
// canonical row, log line, or downstream artifact.
func (t *Transformer) Partner(rec models.RawRecord) (*models.Partner, error) {
	name := NormalizeText(rec.String("nom_librairie"))
	if name == "" {
		return nil, Drop("missing name")
	}

	address := NormalizeText(rec.String("adresse"))
	postcode := NormalizeText(rec.String("code_postal"))
	city := NormalizeText(rec.String("ville"))

	var revenue *float64
	if raw := strings.TrimSpace(rec.String("ca_annuel")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, Drop("invalid ca_annuel")
		}
		revenue = &v
	}

	return &models.Partner{
		ID:               models.StableID(name, address, postcode, city),
		Name:             name,
		Address:          address,
		Postcode:         postcode,
		City:             city,
		ContactNameHash:  models.PseudonymizeField(NormalizeText(rec.String("contact_nom"))),
		ContactEmailHash: models.PseudonymizeField(NormalizeText(rec.String("contact_email"))),
		ContactPhoneHash: models.PseudonymizeField(NormalizeText(rec.String("contact_telephone"))),
		AnnualRevenue:    revenue,
		PartnershipDate:  parseDate(rec.String("date_partenariat")),
		Specialty:        NormalizeText(rec.String("specialite")),
		Latitude:         optFloat(rec, "latitude"),
		Longitude:        optFloat(rec, "longitude"),
	}, nil
}

// parsePrice parses a catalog price, tolerating a leading currency sign.
func parsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "£€$ ")
	return strconv.ParseFloat(s, 64)
}

// parseDate tries the accepted layouts; an unparseable date stays NULL.
func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d
		}
	}
	return nil
}

func optFloat(rec models.RawRecord, key string) *float64 {
	if !rec.Has(key) {
		return nil
	}
	v, ok := rec.Float(key)
	if !ok {
		return nil
	}
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
