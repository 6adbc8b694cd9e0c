// Package menu holds the house pizza catalog and the pizza designer options.
package menu

import "slices"

// Pizza is a house pizza listed on the menu. Price is in whole COP.
type Pizza struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Details     string `json:"details"`
	PrepTime    string `json:"prepTime"`
}

var housePizzas = []Pizza{
	{
		ID:          "1",
		Name:        "Clásica Margherita",
		Description: "Tomate, mozzarella fresca, albahaca y aceite de oliva",
		Price:       12990,
		Image:       "./marguerita.jpg",
		Details:     "Una pizza tradicional italiana con masa crujiente, salsa de tomate casera, mozzarella de búfala y albahaca fresca.",
		PrepTime:    "12 minutos",
	},
	{
		ID:          "2",
		Name:        "Pepperoni Suprema",
		Description: "Pepperoni, mozzarella, salsa de tomate y orégano",
		Price:       14990,
		Image:       "./peperroni.jpg",
		Details:     "Generosas capas de pepperoni picante, mozzarella derretida y una pizca de orégano italiano.",
		PrepTime:    "15 minutos",
	},
	{
		ID:          "3",
		Name:        "Vegetariana Deluxe",
		Description: "Pimientos, champiñones, cebolla, aceitunas y queso",
		Price:       13990,
		Image:       "./veg.jpg",
		Details:     "Pimientos frescos, champiñones salteados, cebolla caramelizada, aceitunas negras y una mezcla de quesos sobre masa artesanal.",
		PrepTime:    "18 minutos",
	},
	{
		ID:          "4",
		Name:        "Hawaiana Especial",
		Description: "Jamón, piña, mozzarella y salsa de tomate",
		Price:       15990,
		Image:       "./hawai.jpg",
		Details:     "Jamón, trozos de piña fresca y mozzarella cremosa sobre salsa de tomate casera.",
		PrepTime:    "14 minutos",
	},
}

// Catalog returns the house pizzas in menu order.
func Catalog() []Pizza {
	return slices.Clone(housePizzas)
}

// Lookup finds a house pizza by id.
func Lookup(id string) (Pizza, bool) {
	idx := slices.IndexFunc(housePizzas, func(p Pizza) bool { return p.ID == id })
	if idx < 0 {
		return Pizza{}, false
	}
	return housePizzas[idx], true
}
