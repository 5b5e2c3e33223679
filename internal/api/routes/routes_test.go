package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/auth"
	"car-listing-api-server/internal/database"
	"car-listing-api-server/internal/models"
	"car-listing-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]models.User
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = primitive.NewObjectID()
	m.byID[user.ID.Hex()] = *user
	return nil
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return &u, nil
	}
	return nil, database.ErrNotFound
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// memoryCars mimics the repository: schema check on insert, newest first,
// owner attached on the public listing.
type memoryCars struct {
	mu    sync.Mutex
	users *memoryUsers
	cars  []models.Car
	clock time.Time
}

func (m *memoryCars) Insert(_ context.Context, car *models.Car) error {
	if err := car.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	car.ID = primitive.NewObjectID()
	car.CreatedAt, car.UpdatedAt = m.clock, m.clock
	m.cars = append(m.cars, *car)
	return nil
}

func (m *memoryCars) sorted() []models.Car {
	out := append([]models.Car(nil), m.cars...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryCars) List(ctx context.Context, skip, limit int64) ([]models.CarWithOwner, error) {
	if skip < 0 || limit < 0 {
		return nil, errors.New("negative skip or limit")
	}
	m.mu.Lock()
	all := m.sorted()
	m.mu.Unlock()

	out := []models.CarWithOwner{}
	for i := skip; i < int64(len(all)) && i < skip+limit; i++ {
		entry := models.CarWithOwner{Car: all[i]}
		if u, err := m.users.FindByID(ctx, all[i].User.Hex()); err == nil {
			entry.User = &models.CarOwner{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *memoryCars) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.cars)), nil
}

func (m *memoryCars) ListByOwner(_ context.Context, ownerID primitive.ObjectID) ([]models.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Car{}
	for _, c := range m.sorted() {
		if c.User == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryCars) FindByID(_ context.Context, id string) (*models.Car, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, database.ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cars {
		if c.ID == oid {
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryCars) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.cars {
		if c.ID == id {
			m.cars = append(m.cars[:i], m.cars[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

type memoryMedia struct {
	mu        sync.Mutex
	uploads   int
	destroyed []string
}

const mediaBase = "https://media.test/"

func (m *memoryMedia) Upload(_ context.Context, image, folder string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	return fmt.Sprintf("%s%s/pic%d.jpg", mediaBase, folder, m.uploads), nil
}

func (m *memoryMedia) Destroy(_ context.Context, folder, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, folder+"/"+publicID)
	return nil
}

func (m *memoryMedia) Owns(rawURL string) bool { return strings.HasPrefix(rawURL, mediaBase) }

type fixture struct {
	router *gin.Engine
	media  *memoryMedia
}

func newFixture() *fixture {
	users := &memoryUsers{byID: map[string]models.User{}}
	cars := &memoryCars{users: users, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	media := &memoryMedia{}
	log := zap.NewNop()

	router := SetupRouter(config.Config{Server: config.ServerConfig{AllowedOrigins: "*"}}, Dependencies{
		Cars:     service.NewCarService(cars, media, log),
		Users:    users,
		Finder:   users,
		Tokens:   auth.NewTokenService("routes-secret", time.Hour),
		Registry: prometheus.NewRegistry(),
		Log:      log,
	})
	return &fixture{router: router, media: media}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) register(t *testing.T, username string) (token, id string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": username + "@example.com", "username": username, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"_id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Token, body.User.ID
}

func carPayload(brand string) map[string]any {
	return map[string]any{
		"price": 9900, "sellerType": "Professionnel", "sellerName": "Garage Central", "phone": "0102030405",
		"email": "contact@garage.fr", "city": "Lyon", "address": "1 place Bellecour", "brand": brand,
		"model": "Clio", "year": 2018, "month": 6, "mileage": 72000, "carCity": "Lyon",
		"pictureUrl": "data:image/jpeg;base64,/9j/4AAQSkZJRg==",
	}
}

func (f *fixture) createCar(t *testing.T, token, brand string) models.Car {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/cars", token, carPayload(brand))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var car models.Car
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &car))
	return car
}

func TestCarRoutesRequireToken(t *testing.T) {
	f := newFixture()
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/cars"},
		{http.MethodGet, "/api/cars"},
		{http.MethodGet, "/api/cars/user"},
		{http.MethodDelete, "/api/cars/" + primitive.NewObjectID().Hex()},
	} {
		rec := f.do(t, r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)

		rec = f.do(t, r.method, r.path, "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
	}
}

func TestCarLifecycle(t *testing.T) {
	f := newFixture()
	aliceToken, aliceID := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")

	first := f.createCar(t, aliceToken, "Renault")
	assert.Equal(t, aliceID, first.User.Hex())
	assert.Equal(t, mediaBase+"cars/pic1.jpg", first.PictureURL)
	assert.False(t, first.ID.IsZero())
	f.createCar(t, aliceToken, "Peugeot")
	f.createCar(t, bobToken, "Citroen")

	t.Run("missing field uploads nothing", func(t *testing.T) {
		payload := carPayload("Fiat")
		delete(payload, "brand")
		rec := f.do(t, http.MethodPost, "/api/cars", aliceToken, payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 3, f.media.uploads)
	})

	t.Run("schema rejection", func(t *testing.T) {
		payload := carPayload("Fiat")
		payload["year"] = 1970
		rec := f.do(t, http.MethodPost, "/api/cars", aliceToken, payload)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "failed to save car")
	})

	t.Run("public listing", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/cars?page=1&limit=2", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page struct {
			Cars []struct {
				Brand string `json:"brand"`
				User  struct {
					ID       string `json:"_id"`
					Username string `json:"username"`
				} `json:"user"`
			} `json:"cars"`
			CurrentPage int64 `json:"currentPage"`
			TotalCars   int64 `json:"totalCars"`
			TotalPages  int64 `json:"totalPages"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, int64(1), page.CurrentPage)
		assert.Equal(t, int64(3), page.TotalCars)
		assert.Equal(t, int64(2), page.TotalPages)
		require.Len(t, page.Cars, 2)
		assert.Equal(t, "Citroen", page.Cars[0].Brand)
		assert.Equal(t, "bob", page.Cars[0].User.Username)
		assert.Equal(t, bobID, page.Cars[0].User.ID)
		assert.Equal(t, "Peugeot", page.Cars[1].Brand)

		rec = f.do(t, http.MethodGet, "/api/cars?page=2&limit=2", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Cars, 1)
		assert.Equal(t, "Renault", page.Cars[0].Brand)

		rec = f.do(t, http.MethodGet, "/api/cars?page=-1", aliceToken, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("own listing", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/cars/user", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var cars []models.Car
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
		require.Len(t, cars, 2)
		assert.Equal(t, "Peugeot", cars[0].Brand)
		assert.Equal(t, "Renault", cars[1].Brand)
		for _, c := range cars {
			assert.Equal(t, aliceID, c.User.Hex())
			assert.Equal(t, 9900.0, c.Price)
			assert.Equal(t, models.SellerProfessional, c.SellerType)
			assert.Equal(t, "Garage Central", c.SellerName)
			assert.Equal(t, "0102030405", c.Phone)
			assert.Equal(t, "contact@garage.fr", c.Email)
			assert.Equal(t, "Lyon", c.City)
			assert.Equal(t, "1 place Bellecour", c.Address)
			assert.Equal(t, "Clio", c.Model)
			assert.Equal(t, 2018, c.Year)
			assert.Equal(t, 6, c.Month)
			assert.Equal(t, 72000.0, c.Mileage)
			assert.Equal(t, "Lyon", c.CarCity)
			assert.True(t, strings.HasPrefix(c.PictureURL, mediaBase+"cars/"), c.PictureURL)
			assert.False(t, c.CreatedAt.IsZero())
		}
		assert.Equal(t, first.ID, cars[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		path := "/api/cars/" + first.ID.Hex()

		rec := f.do(t, http.MethodDelete, path, bobToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodDelete, path, aliceToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"cars/pic1"}, f.media.destroyed)

		rec = f.do(t, http.MethodDelete, path, aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/cars?page=1&limit=10", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var page service.Page
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, int64(2), page.TotalCars)
		require.Len(t, page.Cars, 2)
		for _, c := range page.Cars {
			assert.NotEqual(t, first.ID, c.ID)
		}

		rec = f.do(t, http.MethodGet, "/api/cars/user", aliceToken, nil)
		var mine []models.Car
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
		require.Len(t, mine, 1)
		assert.Equal(t, "Peugeot", mine[0].Brand)

		rec = f.do(t, http.MethodDelete, "/api/cars/not-an-id", aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}
