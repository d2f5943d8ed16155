package repositories

import (
	"ble-linepos/internal/models"
	"context"
	"errors"
	"fmt"
	"gorm.io/gorm"
)

type AnchorRepository struct {
	db *gorm.DB
}

func NewAnchorRepository(db *gorm.DB) *AnchorRepository {
	return &AnchorRepository{db: db}
}

// CreateOrUpdate upserts the surveyed position of an anchor keyed by its
// hardware address.
func (r *AnchorRepository) CreateOrUpdate(ctx context.Context, anchor models.Anchor) error {
	record := models.AnchorRecordFromAnchor(anchor)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.AnchorRecord
		result := tx.Where("mac_address = ?", record.MacAddress).First(&existing)

		if result.Error == nil {
			return tx.Model(&existing).Updates(map[string]interface{}{
				"label": record.Label,
				"x":     record.X,
				"y":     record.Y,
			}).Error
		} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(record).Error
		} else {
			return result.Error
		}
	})
}

func (r *AnchorRepository) FindByMacAddress(ctx context.Context, macAddress models.AnchorID) (*models.AnchorRecord, error) {
	var record models.AnchorRecord
	err := r.db.WithContext(ctx).Where("mac_address = ?", string(macAddress)).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAnchors loads the two required anchors in the given order.
func (r *AnchorRepository) FindAnchors(ctx context.Context, ids [2]models.AnchorID) (models.AnchorConfig, error) {
	anchors := make(models.AnchorConfig, 0, len(ids))
	for _, id := range ids {
		record, err := r.FindByMacAddress(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewConfigurationError("anchors", "anchor %s is not surveyed", id)
		}
		if err != nil {
			return nil, fmt.Errorf("loading anchor %s: %w", id, err)
		}
		anchors = append(anchors, record.ToAnchor())
	}
	return anchors, nil
}

func (r *AnchorRepository) GetAllAnchors(ctx context.Context) ([]*models.AnchorRecord, error) {
	var records []*models.AnchorRecord
	err := r.db.WithContext(ctx).Order("mac_address").Find(&records).Error
	return records, err
}
