package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateSessionID() string {
	return fmt.Sprintf("bart_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateEventID() string {
	return fmt.Sprintf("evt_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// GenerateTaskSeed creates a random per-deployment seed when none is
// configured. 128 bits is plenty for a behavioral task.
func GenerateTaskSeed() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate task seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

// FormatCurrency renders an amount the way the HUD cards show it.
func FormatCurrency(v float64, symbol string) string {
	return fmt.Sprintf("%.2f %s", v, symbol)
}

// Timestamp is the date format used throughout the CSV outputs.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02_15:04:05")
}
