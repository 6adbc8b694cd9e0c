package menu

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
)

const (
	designBasePrice  int64 = 10000
	twoFlavorsCharge int64 = 2000

	MinBakeMinutes     = 10
	MaxBakeMinutes     = 20
	DefaultBakeMinutes = 12

	customPizzaName  = "Pizza Personalizada"
	customPizzaImage = "/custom-pizza.png"
)

// ErrInvalidDesign is wrapped by every Design.Validate failure.
var ErrInvalidDesign = errors.New("menu: invalid design")

type SizeOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// PricePercent scales the base price; 100 is the medium pizza.
	PricePercent int64 `json:"pricePercent"`
	Slices       int   `json:"slices"`
}

type CrustOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type Topping struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Image    string `json:"image"`
}

type CutStyle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var sizes = []SizeOption{
	{ID: "small", Name: "Pequeña", PricePercent: 80, Slices: 6},
	{ID: "medium", Name: "Mediana", PricePercent: 100, Slices: 8},
	{ID: "large", Name: "Grande", PricePercent: 120, Slices: 10},
	{ID: "xl", Name: "Extra Grande", PricePercent: 150, Slices: 12},
}

var crusts = []CrustOption{
	{ID: "traditional", Name: "Tradicional"},
	{ID: "thin", Name: "Delgada"},
	{ID: "thick", Name: "Gruesa", Price: 1000},
	{ID: "stuffed", Name: "Rellena de Queso", Price: 3000},
}

var toppings = []Topping{
	{ID: "pepperoni", Name: "Pepperoni", Category: "meats", Price: 2500, Image: "/peperoni.png"},
	{ID: "ham", Name: "Jamón", Category: "meats", Price: 4000, Image: "/ham.png"},
	{ID: "chicken", Name: "Pollo", Category: "meats", Price: 2500, Image: "/chicken.png"},
	{ID: "bacon", Name: "Tocino", Category: "meats", Price: 2000, Image: "/bacon.png"},
	{ID: "mushroom", Name: "Champiñones", Category: "vegetables", Price: 1500, Image: "/mushroom.png"},
	{ID: "pepper", Name: "Pimiento", Category: "vegetables", Price: 1000, Image: "/pepper.png"},
	{ID: "onion", Name: "Cebolla", Category: "vegetables", Price: 1000, Image: "/onion.png"},
	{ID: "olive", Name: "Aceitunas", Category: "vegetables", Price: 1500, Image: "/olive.png"},
	{ID: "mozzarella", Name: "Mozzarella", Category: "cheeses", Price: 2000, Image: "/mozzarella.png"},
	{ID: "cheddar", Name: "Cheddar", Category: "cheeses", Price: 2000, Image: "/cheddar.png"},
	{ID: "parmesan", Name: "Parmesano", Category: "cheeses", Price: 2500, Image: "/parmesan.png"},
	{ID: "gouda", Name: "Gouda", Category: "cheeses", Price: 2500, Image: "/gouda.png"},
	{ID: "pineapple", Name: "Piña", Category: "specials", Price: 1500, Image: "/pineapple.png"},
	{ID: "basil", Name: "Albahaca", Category: "specials", Price: 500, Image: "/basil.png"},
	{ID: "arugula", Name: "Rúcula", Category: "specials", Price: 1000, Image: "/arugula.png"},
	{ID: "chili", Name: "Chile", Category: "specials", Price: 500, Image: "/chili.png"},
}

var cutStyles = []CutStyle{
	{ID: "traditional", Name: "Tradicional"},
	{ID: "square", Name: "Cuadrados"},
	{ID: "strips", Name: "Tiras"},
	{ID: "uncut", Name: "Sin Cortar"},
}

// Options is everything the designer wizard offers, served to the UI as-is.
type Options struct {
	Sizes     []SizeOption  `json:"sizes"`
	Crusts    []CrustOption `json:"crusts"`
	Toppings  []Topping     `json:"toppings"`
	CutStyles []CutStyle    `json:"cutStyles"`
	BakeRange [2]int        `json:"bakeRange"`
}

func DesignerOptions() Options {
	return Options{
		Sizes:     slices.Clone(sizes),
		Crusts:    slices.Clone(crusts),
		Toppings:  slices.Clone(toppings),
		CutStyles: slices.Clone(cutStyles),
		BakeRange: [2]int{MinBakeMinutes, MaxBakeMinutes},
	}
}

// Design is the result of the five designer steps: size, crust, toppings,
// bake time and cut style.
type Design struct {
	Size        string   `json:"size"`
	Crust       string   `json:"crust"`
	Toppings    []string `json:"toppings"`
	TwoFlavors  bool     `json:"twoFlavors"`
	BakeMinutes int      `json:"bakeMinutes"`
	CutStyle    string   `json:"cutStyle"`
}

// NewDesign returns the designer's starting point.
func NewDesign() Design {
	return Design{
		Size:        "medium",
		Crust:       "traditional",
		BakeMinutes: DefaultBakeMinutes,
		CutStyle:    "traditional",
	}
}

func (d Design) Validate() error {
	if _, ok := findSize(d.Size); !ok {
		return fmt.Errorf("%w: unknown size %q", ErrInvalidDesign, d.Size)
	}
	if _, ok := findCrust(d.Crust); !ok {
		return fmt.Errorf("%w: unknown crust %q", ErrInvalidDesign, d.Crust)
	}
	seen := make(map[string]bool, len(d.Toppings))
	for _, id := range d.Toppings {
		if _, ok := findTopping(id); !ok {
			return fmt.Errorf("%w: unknown topping %q", ErrInvalidDesign, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: topping %q selected twice", ErrInvalidDesign, id)
		}
		seen[id] = true
	}
	if d.BakeMinutes < MinBakeMinutes || d.BakeMinutes > MaxBakeMinutes {
		return fmt.Errorf("%w: bake time %d outside %d-%d minutes", ErrInvalidDesign, d.BakeMinutes, MinBakeMinutes, MaxBakeMinutes)
	}
	if !slices.ContainsFunc(cutStyles, func(c CutStyle) bool { return c.ID == d.CutStyle }) {
		return fmt.Errorf("%w: unknown cut style %q", ErrInvalidDesign, d.CutStyle)
	}
	return nil
}

// Price is base × size + crust + toppings, plus the two-flavor charge.
// Call Validate first; unknown options contribute nothing and each topping
// is charged once.
func (d Design) Price() int64 {
	price := designBasePrice
	if s, ok := findSize(d.Size); ok {
		price = price * s.PricePercent / 100
	}
	if c, ok := findCrust(d.Crust); ok {
		price += c.Price
	}
	for _, id := range d.toppingSet() {
		if t, ok := findTopping(id); ok {
			price += t.Price
		}
	}
	if d.TwoFlavors {
		price += twoFlavorsCharge
	}
	return price
}

// Slices is the number of slices for the chosen size.
func (d Design) Slices() int {
	if s, ok := findSize(d.Size); ok {
		return s.Slices
	}
	return 0
}

// Signature identifies a design independently of its size, so two identical
// custom pizzas merge into one cart line.
func (d Design) Signature() string {
	tops := d.toppingSet()

	canonical := strings.Join([]string{
		d.Crust,
		strings.Join(tops, ","),
		strconv.FormatBool(d.TwoFlavors),
		strconv.Itoa(d.BakeMinutes),
		d.CutStyle,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return "custom-" + hex.EncodeToString(sum[:6])
}

// toppingSet returns the selected toppings sorted and without repeats.
func (d Design) toppingSet() []string {
	tops := slices.Clone(d.Toppings)
	slices.Sort(tops)
	return slices.Compact(tops)
}

// LineItem converts a validated design into a cart line.
func (d Design) LineItem(quantity int) cart.LineItem {
	return cart.LineItem{
		ProductID: d.Signature(),
		Name:      customPizzaName,
		Size:      d.Size,
		UnitPrice: d.Price(),
		Quantity:  quantity,
		Image:     customPizzaImage,
	}
}

// LineItem converts a house pizza into a cart line in the given size.
// The listed price is the medium price and scales like a designed pizza.
func (p Pizza) LineItem(size string, quantity int) (cart.LineItem, error) {
	s, ok := findSize(size)
	if !ok {
		return cart.LineItem{}, fmt.Errorf("%w: unknown size %q", ErrInvalidDesign, size)
	}
	return cart.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Size:      s.ID,
		UnitPrice: p.Price * s.PricePercent / 100,
		Quantity:  quantity,
		Image:     p.Image,
	}, nil
}

func findSize(id string) (SizeOption, bool) {
	idx := slices.IndexFunc(sizes, func(s SizeOption) bool { return s.ID == id })
	if idx < 0 {
		return SizeOption{}, false
	}
	return sizes[idx], true
}

func findCrust(id string) (CrustOption, bool) {
	idx := slices.IndexFunc(crusts, func(c CrustOption) bool { return c.ID == id })
	if idx < 0 {
		return CrustOption{}, false
	}
	return crusts[idx], true
}

func findTopping(id string) (Topping, bool) {
	idx := slices.IndexFunc(toppings, func(t Topping) bool { return t.ID == id })
	if idx < 0 {
		return Topping{}, false
	}
	return toppings[idx], true
}
