package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/helpers"
	"github.com/florakart/florakart/internal/models"
)

type AddressRequest struct {
	AddressType    string `json:"address_type"`
	FullName       string `json:"full_name" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	AlternatePhone string `json:"alternate_phone"`
	AddressLine1   string `json:"address_line1" binding:"required"`
	AddressLine2   string `json:"address_line2"`
	Landmark       string `json:"landmark"`
	City           string `json:"city" binding:"required"`
	State          string `json:"state" binding:"required"`
	Pincode        string `json:"pincode" binding:"required"`
	IsDefault      bool   `json:"is_default"`
}

func CreateAddress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}
	userUUID := userID.(uuid.UUID)

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	addressType := req.AddressType
	if addressType == "" {
		addressType = "home"
	}

	address := models.Address{
		UserID:         userUUID,
		AddressType:    addressType,
		FullName:       req.FullName,
		Phone:          req.Phone,
		AlternatePhone: req.AlternatePhone,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		Landmark:       req.Landmark,
		City:           req.City,
		State:          req.State,
		Pincode:        req.Pincode,
		IsDefault:      req.IsDefault,
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		// Only one default address per user.
		if address.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("user_id = ? AND is_default = ?", userUUID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create address.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Address added successfully!",
		"address": address,
	})
}

func ListAddresses(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}
	userUUID := userID.(uuid.UUID)

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var addresses []models.Address
	if err := gormDB.Where("user_id = ?", userUUID).Order("is_default DESC, created_at DESC").Find(&addresses).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list addresses.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}
