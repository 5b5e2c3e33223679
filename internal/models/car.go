// server/internal/models/car.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Seller types accepted by the schema.
const (
	SellerProfessional = "Professionnel"
	SellerPrivate      = "Particulier"
)

const (
	MinYear  = 1980
	MaxYear  = 2030
	MinMonth = 1
	MaxMonth = 12
)

// ErrSchema is returned when a document does not satisfy the car schema.
var ErrSchema = errors.New("car validation failed")

type Car struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`

	Price float64 `bson:"price" json:"price"`

	SellerType string `bson:"sellerType" json:"sellerType"` // Professionnel | Particulier
	SellerName string `bson:"sellerName" json:"sellerName"`
	Phone      string `bson:"phone" json:"phone"`
	Email      string `bson:"email" json:"email"`
	City       string `bson:"city" json:"city"`
	Address    string `bson:"address" json:"address"`

	Brand   string  `bson:"brand" json:"brand"`
	Model   string  `bson:"model" json:"model"`
	Year    int     `bson:"year" json:"year"`
	Month   int     `bson:"month" json:"month"`
	Mileage float64 `bson:"mileage" json:"mileage"`
	CarCity string  `bson:"carCity" json:"carCity"`

	PictureURL string `bson:"pictureUrl" json:"pictureUrl"`

	// User is the owner. Set once at creation.
	User primitive.ObjectID `bson:"user" json:"user"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CarOwner is the public projection of a User attached to listed cars.
type CarOwner struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Username     string             `bson:"username" json:"username"`
	ProfileImage string             `bson:"profileImage" json:"profileImage"`
}

// CarWithOwner is a Car whose "user" field is populated with the owner's
// public profile instead of the bare id. The outer User field shadows the
// embedded one when encoded to JSON.
type CarWithOwner struct {
	Car  `bson:",inline"`
	User *CarOwner `bson:"owner" json:"user"`
}

// Validate enforces the schema constraints checked before a car is written.
func (c *Car) Validate() error {
	var missing []string
	required := map[string]string{
		"sellerType": c.SellerType,
		"sellerName": c.SellerName,
		"phone":      c.Phone,
		"email":      c.Email,
		"city":       c.City,
		"address":    c.Address,
		"brand":      c.Brand,
		"model":      c.Model,
		"carCity":    c.CarCity,
		"pictureUrl": c.PictureURL,
	}
	for _, field := range []string{"sellerType", "sellerName", "phone", "email", "city", "address", "brand", "model", "carCity", "pictureUrl"} {
		if strings.TrimSpace(required[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: path(s) %s required", ErrSchema, strings.Join(missing, ", "))
	}

	if c.SellerType != SellerProfessional && c.SellerType != SellerPrivate {
		return fmt.Errorf("%w: sellerType %q is not a valid enum value", ErrSchema, c.SellerType)
	}
	if c.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrSchema)
	}
	if c.Year < MinYear || c.Year > MaxYear {
		return fmt.Errorf("%w: year %d is outside [%d, %d]", ErrSchema, c.Year, MinYear, MaxYear)
	}
	if c.Month < MinMonth || c.Month > MaxMonth {
		return fmt.Errorf("%w: month %d is outside [%d, %d]", ErrSchema, c.Month, MinMonth, MaxMonth)
	}
	if c.Mileage < 0 {
		return fmt.Errorf("%w: mileage must not be negative", ErrSchema)
	}
	if c.User.IsZero() {
		return fmt.Errorf("%w: user is required", ErrSchema)
	}
	return nil
}
