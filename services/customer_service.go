package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"hotel-ledger/models"

	"gorm.io/gorm"
)

// CustomerService registers the guests that reservations are booked for.
type CustomerService struct {
	DB *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{DB: db}
}

// Create stores the customer and fills in its ID.
func (s *CustomerService) Create(ctx context.Context, customer *models.Customer) error {
	customer.FullName = strings.TrimSpace(customer.FullName)
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	customer.Phone = strings.TrimSpace(customer.Phone)

	if customer.FullName == "" {
		return invalid("fullName", "missing_name", "customer name is required")
	}
	if customer.Email != "" {
		if _, err := mail.ParseAddress(customer.Email); err != nil {
			return invalid("email", "invalid_email", "%q is not an email address", customer.Email)
		}
	}
	customer.ID = 0

	if err := s.DB.WithContext(ctx).Create(customer).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (s *CustomerService) GetByID(ctx context.Context, id uint) (models.Customer, error) {
	var customer models.Customer
	err := s.DB.WithContext(ctx).First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return customer, ErrCustomerNotFound
	}
	if err != nil {
		return customer, fmt.Errorf("failed to load customer %d: %w", id, err)
	}
	return customer, nil
}
