// server/internal/api/handlers/car_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"car-listing-api-server/internal/api/middleware"
	"car-listing-api-server/internal/models"
	"car-listing-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type CarService interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, in service.CreateCarInput) (*models.Car, error)
	List(ctx context.Context, page, limit int64) (*service.Page, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error)
	Delete(ctx context.Context, callerID primitive.ObjectID, carID string) error
}

type CarHandler struct {
	Cars CarService
	Log  *zap.Logger
}

// CreateCar uploads the picture and saves a new listing for the caller.
func (h *CarHandler) CreateCar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	var payload service.CreateCarInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide all required fields", "details": err.Error()})
		return
	}

	car, err := h.Cars.Create(c.Request.Context(), user.ID, payload)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide all required fields"})
			return
		}
		h.Log.Error("Error creating car", zap.String("userID", user.ID.Hex()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, car)
}

// GetCars returns one page of every user's listings.
func (h *CarHandler) GetCars(c *gin.Context) {
	page, limit := service.ParsePagination(c.Query("page"), c.Query("limit"))

	result, err := h.Cars.List(c.Request.Context(), page, limit)
	if err != nil {
		h.Log.Error("Error in get all cars route", zap.Int64("page", page), zap.Int64("limit", limit), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUserCars returns the caller's own listings.
func (h *CarHandler) GetUserCars(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	cars, err := h.Cars.ListByOwner(c.Request.Context(), user.ID)
	if err != nil {
		h.Log.Error("Get user cars error", zap.String("userID", user.ID.Hex()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, cars)
}

func (h *CarHandler) DeleteCar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	carID := c.Param("id")

	err := h.Cars.Delete(c.Request.Context(), user.ID, carID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Car deleted successfully"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Car not found"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	default:
		h.Log.Error("Error deleting car", zap.String("carID", carID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
