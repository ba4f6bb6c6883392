package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "Kale Arkası Üst", NormalizeSpace("  Kale\n\tArkası   Üst "))
	assert.Equal(t, "", NormalizeSpace(" \n "))
}

func TestSameLabel(t *testing.T) {
	assert.True(t, SameLabel("Tüm kategorileri göster", "  TÜM  kategorileri\ngöster "))
	assert.True(t, SameLabel("Gizle", "gizle"))
	assert.False(t, SameLabel("Gizle", "Gizlenen Tribün"))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "N/A", OrDefault(" ", "N/A"))
	assert.Equal(t, "Vodafone Park", OrDefault("Vodafone Park", "N/A"))
}
