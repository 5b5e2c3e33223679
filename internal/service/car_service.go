package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"car-listing-api-server/internal/database"
	"car-listing-api-server/internal/media"
	"car-listing-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrValidation   = errors.New("please provide all required fields")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("car not found")
	ErrUpload       = errors.New("image upload failed")
)

const (
	DefaultPage  = 1
	DefaultLimit = 2
)

// CarStore is the persistence the service needs.
type CarStore interface {
	Insert(ctx context.Context, car *models.Car) error
	List(ctx context.Context, skip, limit int64) ([]models.CarWithOwner, error)
	Count(ctx context.Context) (int64, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error)
	FindByID(ctx context.Context, id string) (*models.Car, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Number is a numeric create field kept as it appeared in the body: a JSON
// number, or a quoted string holding one.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if t := strings.TrimSpace(str); t != "" {
			if _, err := strconv.ParseFloat(t, 64); err != nil {
				return fmt.Errorf("%q is not a number", str)
			}
		}
		*n = Number(strconv.Quote(str))
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("%s is not a number", raw)
	}
	*n = Number(raw)
	return nil
}

func (n Number) quoted() bool { return strings.HasPrefix(string(n), `"`) }

// String returns the value without the quotes of a string-typed field.
func (n Number) String() string {
	if n.quoted() {
		if s, err := strconv.Unquote(string(n)); err == nil {
			return s
		}
	}
	return string(n)
}

// present mirrors the presence check of the mobile API: a non-empty string
// counts even when it reads as zero, a number only when it is not zero.
func (n Number) present() bool {
	if n.quoted() {
		return n.String() != ""
	}
	return number(n) != 0
}

// CreateCarInput is the create payload. Numeric fields accept JSON numbers
// or numeric strings.
type CreateCarInput struct {
	Price      Number `json:"price"`
	SellerType string `json:"sellerType"`
	SellerName string `json:"sellerName"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	City       string `json:"city"`
	Address    string `json:"address"`
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Year       Number `json:"year"`
	Month      Number `json:"month"`
	Mileage    Number `json:"mileage"`
	CarCity    string `json:"carCity"`
	PictureURL string `json:"pictureUrl"` // base64 data URI
}

// Page is one page of the public listing.
type Page struct {
	Cars        []models.CarWithOwner `json:"cars"`
	CurrentPage int64                 `json:"currentPage"`
	TotalCars   int64                 `json:"totalCars"`
	TotalPages  int64                 `json:"totalPages"`
}

type CarService struct {
	store CarStore
	media media.Store
	log   *zap.Logger
}

func NewCarService(store CarStore, mediaStore media.Store, log *zap.Logger) *CarService {
	return &CarService{store: store, media: mediaStore, log: log}
}

// Create checks the required fields, uploads the picture and persists a car
// owned by ownerID. Nothing is uploaded when the check fails and nothing is
// written when the upload fails.
func (s *CarService) Create(ctx context.Context, ownerID primitive.ObjectID, in CreateCarInput) (*models.Car, error) {
	if missing := in.missingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(missing, ", "))
	}

	pictureURL, err := s.media.Upload(ctx, in.PictureURL, media.CarsFolder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	car := &models.Car{
		Price:      number(in.Price),
		SellerType: in.SellerType,
		SellerName: in.SellerName,
		Phone:      in.Phone,
		Email:      in.Email,
		City:       in.City,
		Address:    in.Address,
		Brand:      in.Brand,
		Model:      in.Model,
		Mileage:    number(in.Mileage),
		CarCity:    in.CarCity,
		PictureURL: pictureURL,
		User:       ownerID,
	}
	if car.Year, err = integer("year", in.Year); err != nil {
		return nil, err
	}
	if car.Month, err = integer("month", in.Month); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to save car: %w", err)
	}
	return car, nil
}

// missingFields applies the presence check of the create route. A JSON
// number of zero counts as missing, the string "0" does not. sellerType, city
// and carCity are left to the schema.
func (in CreateCarInput) missingFields() []string {
	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("pictureUrl", in.PictureURL != "")
	check("price", in.Price.present())
	check("sellerName", in.SellerName != "")
	check("phone", in.Phone != "")
	check("email", in.Email != "")
	check("address", in.Address != "")
	check("brand", in.Brand != "")
	check("model", in.Model != "")
	check("year", in.Year.present())
	check("month", in.Month.present())
	check("mileage", in.Mileage.present())
	return missing
}

// number converts like the mobile client expects: empty or unparsable
// values become 0 (NaN is folded into 0).
func number(n Number) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(n.String()), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

func integer(field string, n Number) (int, error) {
	f := number(n)
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrSchema, field)
	}
	return int(f), nil
}

// ParsePagination reads the page and limit query values. A value that parses
// to zero, is not a finite number, does not fit in an int64 or is absent falls
// back to its default; negative values are passed through.
func ParsePagination(page, limit string) (int64, int64) {
	return parseOr(page, DefaultPage), parseOr(limit, DefaultLimit)
}

func parseOr(raw string, def int64) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return def
	}
	v := int64(f)
	if v == 0 {
		return def
	}
	return v
}

// List returns every user's cars, newest first, one page at a time.
func (s *CarService) List(ctx context.Context, page, limit int64) (*Page, error) {
	skip := clampInt64((float64(page) - 1) * float64(limit))

	cars, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count cars: %w", err)
	}

	return &Page{
		Cars:        cars,
		CurrentPage: page,
		TotalCars:   total,
		TotalPages:  int64(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func clampInt64(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func (s *CarService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error) {
	cars, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars of %s: %w", ownerID.Hex(), err)
	}
	return cars, nil
}

// Delete removes a car owned by callerID. Removing its picture from the media
// store is best effort.
func (s *CarService) Delete(ctx context.Context, callerID primitive.ObjectID, carID string) error {
	car, err := s.store.FindByID(ctx, carID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find car %s: %w", carID, err)
	}

	if car.User.Hex() != callerID.Hex() {
		return ErrUnauthorized
	}

	if car.PictureURL != "" && s.media.Owns(car.PictureURL) {
		publicID := media.PublicID(car.PictureURL)
		if err := s.media.Destroy(ctx, media.CarsFolder, publicID); err != nil {
			s.log.Warn("failed to delete car picture",
				zap.String("carID", carID),
				zap.String("publicID", publicID),
				zap.Error(err))
		}
	}

	if err := s.store.Delete(ctx, car.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete car %s: %w", carID, err)
	}
	return nil
}
