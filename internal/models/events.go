package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeImportRequested = "IMPORT_REQUESTED"
	EventTypeImportCompleted = "IMPORT_COMPLETED"
	EventTypeProductImported = "PRODUCT_IMPORTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// ImportRequestedEvent asks a worker to run an uploaded file
type ImportRequestedEvent struct {
	BaseEvent
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
	Enrich   bool   `json:"enrich"`
}

// ImportCompletedEvent published when a bulk job finishes
type ImportCompletedEvent struct {
	BaseEvent
	JobID        string           `json:"job_id"`
	FileName     string           `json:"file_name"`
	Status       string           `json:"status"`
	Total        int              `json:"total"`
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

// ProductImportedEvent published per successfully imported row
type ProductImportedEvent struct {
	BaseEvent
	JobID     string             `json:"job_id"`
	ProductID int64              `json:"product_id"`
	SKU       string             `json:"sku"`
	Created   bool               `json:"created"`
	StockQty  int                `json:"stock_qty"`
	Variants  []VariantStockData `json:"variants"`
}

// VariantStockData represents per-size stock in events
type VariantStockData struct {
	SKUVariant string `json:"sku_variant"`
	Size       string `json:"size"`
	StockQty   int    `json:"stock_qty"`
}
