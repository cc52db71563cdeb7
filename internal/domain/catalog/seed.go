package catalog

import "github.com/shopspring/decimal"

// Seed is the starter produce list used when no product service is configured
func Seed() []Product {
	return []Product{
		{ID: "veg-tomato", Name: "Heirloom Tomatoes (1 kg)", Category: CategoryVegetable, Price: decimal.NewFromInt(80), AvailableQuantity: 40},
		{ID: "veg-spinach", Name: "Organic Spinach (250 g)", Category: CategoryVegetable, Price: decimal.NewFromInt(35), AvailableQuantity: 60},
		{ID: "veg-carrot", Name: "Carrots (1 kg)", Category: CategoryVegetable, Price: decimal.NewFromInt(60), AvailableQuantity: 25},
		{ID: "fruit-mango", Name: "Alphonso Mangoes (6 pcs)", Category: CategoryFruit, Price: decimal.NewFromInt(450), AvailableQuantity: 12},
		{ID: "fruit-banana", Name: "Bananas (1 dozen)", Category: CategoryFruit, Price: decimal.NewFromInt(70), AvailableQuantity: 30},
		{ID: "grain-rice", Name: "Sona Masoori Rice (5 kg)", Category: CategoryGrain, Price: decimal.NewFromInt(399), AvailableQuantity: 15},
		{ID: "grain-millet", Name: "Foxtail Millet (1 kg)", Category: CategoryGrain, Price: decimal.RequireFromString("145.50"), AvailableQuantity: 20},
		{ID: "other-honey", Name: "Wild Forest Honey (500 g)", Category: CategoryOther, Price: decimal.NewFromInt(320), AvailableQuantity: 0},
	}
}
