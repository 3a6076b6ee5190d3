package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"latch-backend/models"
	"latch-backend/services"
	"latch-backend/utils"
)

// AddDriverInput defines the expected JSON structure for adding a driver
type AddDriverInput struct {
	Name                 string          `json:"name"`
	PhoneNumber          string          `json:"phoneNumber"`
	SubscriptionStatus   string          `json:"subscriptionStatus"`
	NextSubscriptionDate models.FlexTime `json:"nextSubscriptionDate"`
}

// UpdateDriverInput defines the expected JSON structure for updating a driver.
// Only the keys present in the body are changed.
type UpdateDriverInput struct {
	ID                   string          `json:"_id"`
	Name                 *string         `json:"name"`
	PhoneNumber          *string         `json:"phoneNumber"`
	SubscriptionStatus   *string         `json:"subscriptionStatus"`
	NextSubscriptionDate models.FlexTime `json:"nextSubscriptionDate"`
}

type DeleteDriverInput struct {
	DriverID string `json:"driverId"`
}

type DriverController struct {
	drivers *services.DriverService
}

func NewDriverController(drivers *services.DriverService) *DriverController {
	return &DriverController{drivers: drivers}
}

// GetAllDrivers lists every driver, newest first
func (dc *DriverController) GetAllDrivers(c *gin.Context) {
	drivers, err := dc.drivers.List(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithData(c, http.StatusOK, "All Drivers List", drivers)
}

// SearchDriver matches ?q= against name or phone number
func (dc *DriverController) SearchDriver(c *gin.Context) {
	drivers, err := dc.drivers.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithData(c, http.StatusOK, "Search Drivers List", drivers)
}

// AddDriver creates a new driver
func (dc *DriverController) AddDriver(c *gin.Context) {
	var input AddDriverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	driver, err := dc.drivers.Create(c.Request.Context(), services.CreateDriverInput{
		Name:                 input.Name,
		PhoneNumber:          input.PhoneNumber,
		SubscriptionStatus:   input.SubscriptionStatus,
		NextSubscriptionDate: input.NextSubscriptionDate.Ptr(),
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithData(c, http.StatusCreated, "Driver added successfully", driver)
}

// UpdateDriver changes the supplied fields and returns the updated record
func (dc *DriverController) UpdateDriver(c *gin.Context) {
	var input UpdateDriverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.ID == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Driver ID is required.")
		return
	}

	update := services.UpdateDriverInput{
		Name:               input.Name,
		PhoneNumber:        input.PhoneNumber,
		SubscriptionStatus: input.SubscriptionStatus,
	}
	if input.NextSubscriptionDate.Set {
		if input.NextSubscriptionDate.Valid {
			update.NextSubscriptionDate = input.NextSubscriptionDate.Ptr()
		} else {
			update.ClearNextSubscriptionDate = true
		}
	}

	driver, err := dc.drivers.Update(c.Request.Context(), input.ID, update)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithData(c, http.StatusOK, "Driver updated successfully", driver)
}

// DeleteDriver removes a driver; the id comes in the JSON body
func (dc *DriverController) DeleteDriver(c *gin.Context) {
	var input DeleteDriverInput
	if err := c.ShouldBindJSON(&input); err != nil || input.DriverID == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Driver ID is required.")
		return
	}

	driver, err := dc.drivers.Delete(c.Request.Context(), input.DriverID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithData(c, http.StatusOK, "Driver deleted successfully", driver)
}

func respondWithServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Server Error")
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	utils.RespondWithError(c, status, svcErr.Message())
}
