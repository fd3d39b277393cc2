package persistent

import (
	"errors"

	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/model"

	"gorm.io/gorm"
)

// AllocationRepository reads pool state for the rule engine and carries the
// write operations used by the quota-provisioning collaborator, which is the
// sole writer of monthly_limit, organic_usage and paid_usage.
type AllocationRepository interface {
	GetPool(businessID, period string) (*entity.AllocationPool, error)
	Provision(businessID, period string, monthlyLimit int) (*entity.AllocationPool, error)
	SetOrganicUsage(businessID, period string, usage int) error
	SetPaidUsage(businessID, period string, usage int) error
}

type allocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

func (r *allocationRepository) GetPool(businessID, period string) (*entity.AllocationPool, error) {
	var poolModel model.AllocationPoolModel
	err := r.db.Where("business_id = ? AND period = ?", businessID, period).
		First(&poolModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrAllocationPoolNotFound
		}
		return nil, err
	}
	return ToAllocationPoolEntity(&poolModel), nil
}

func (r *allocationRepository) Provision(businessID, period string, monthlyLimit int) (*entity.AllocationPool, error) {
	var poolModel model.AllocationPoolModel
	err := r.db.Where("business_id = ? AND period = ?", businessID, period).
		First(&poolModel).Error
	if err == nil {
		poolModel.MonthlyLimit = monthlyLimit
		if err := r.db.Save(&poolModel).Error; err != nil {
			return nil, err
		}
		return ToAllocationPoolEntity(&poolModel), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	poolModel = model.AllocationPoolModel{
		BusinessID:   businessID,
		Period:       period,
		MonthlyLimit: monthlyLimit,
	}
	if err := r.db.Create(&poolModel).Error; err != nil {
		return nil, err
	}
	return ToAllocationPoolEntity(&poolModel), nil
}

func (r *allocationRepository) SetOrganicUsage(businessID, period string, usage int) error {
	return r.updateUsage(businessID, period, "organic_usage", usage)
}

func (r *allocationRepository) SetPaidUsage(businessID, period string, usage int) error {
	return r.updateUsage(businessID, period, "paid_usage", usage)
}

func (r *allocationRepository) updateUsage(businessID, period, column string, usage int) error {
	result := r.db.Model(&model.AllocationPoolModel{}).
		Where("business_id = ? AND period = ?", businessID, period).
		Update(column, usage)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrAllocationPoolNotFound
	}
	return nil
}
