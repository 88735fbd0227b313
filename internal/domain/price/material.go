package price

import (
	"fmt"
	"strings"
)

// Material is one product line quoted by the pricing service. Each material
// has its own upstream category and its own history table.
type Material struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	CategoryID    int    `json:"category_id"`
	LocalizedName string `json:"localized_name"`
	Table         string `json:"-"`
}

var catalogue = []Material{
	{Key: "gi", Name: "GI", CategoryID: 1, LocalizedName: "镀锌", Table: "price_history_gi"},
	{Key: "gl", Name: "GL", CategoryID: 2, LocalizedName: "镀铝锌", Table: "price_history_gl"},
	{Key: "ppgi", Name: "PPGI", CategoryID: 3, LocalizedName: "彩涂", Table: "price_history_ppgi"},
	{Key: "hrc", Name: "HRC", CategoryID: 4, LocalizedName: "热轧", Table: "price_history_hrc"},
	{Key: "crc_hard", Name: "CRC Hard", CategoryID: 5, LocalizedName: "冷轧硬卷", Table: "price_history_crc_hard"},
	{Key: "al", Name: "AL", CategoryID: 6, LocalizedName: "铝卷", Table: "price_history_al"},
}

// Materials returns the catalogue in its fixed iteration order.
func Materials() []Material {
	out := make([]Material, len(catalogue))
	copy(out, catalogue)
	return out
}

// MaterialKeys returns the product type keys accepted by the API.
func MaterialKeys() []string {
	keys := make([]string, len(catalogue))
	for i, m := range catalogue {
		keys[i] = m.Key
	}
	return keys
}

// LookupMaterial resolves a product type by key or display name, ignoring case.
func LookupMaterial(productType string) (Material, bool) {
	s := strings.TrimSpace(productType)
	for _, m := range catalogue {
		if strings.EqualFold(m.Key, s) || strings.EqualFold(m.Name, s) {
			return m, true
		}
	}
	return Material{}, false
}

// BuildProductSpec encodes the composite key the upstream uses for one
// product: {categoryId}_{width}_{thickness}_{localizedName}.
func BuildProductSpec(m Material, width, thickness string) string {
	return fmt.Sprintf("%d_%s_%s_%s", m.CategoryID, strings.TrimSpace(width), strings.TrimSpace(thickness), m.LocalizedName)
}
