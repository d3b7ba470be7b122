package pipeline

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"ai-finance-manager/internal/models"

	"github.com/agnivade/levenshtein"
)

var defaultKeywords = map[models.Category][]string{
	models.CategoryFood: {
		"shawarma", "pizza", "burger", "burrito", "taco", "sandwich", "coffee", "cafe",
		"latte", "espresso", "combo", "menu", "meal", "restaurant", "sushi", "pollo",
		"almuerzo", "bebida", "soda", "juice", "jugo", "tea", "donut", "fries", "wrap",
		"empanada", "arepa", "hamburguesa", "postre",
	},
	models.CategoryGroceries: {
		"milk", "leche", "bread", "pan", "eggs", "huevos", "cheese", "queso", "rice",
		"arroz", "banana", "apple", "manzana", "fruta", "fruit", "vegetables", "verdura",
		"yogurt", "butter", "mantequilla", "flour", "harina", "sugar", "azucar", "cereal",
		"pasta", "tomato", "tomate", "onion", "cebolla", "chicken", "beef", "carne",
	},
	models.CategoryTransport: {
		"uber", "lyft", "taxi", "bus", "metro", "transit", "fuel", "gas", "gasolina",
		"parking", "parqueadero", "toll", "peaje", "train", "presto",
	},
	models.CategoryEntertainment: {
		"cinema", "cine", "movie", "concert", "concierto", "netflix", "spotify", "game",
		"theatre", "theater", "museum", "museo", "bowling", "tickets",
	},
	models.CategoryHealth: {
		"pharmacy", "farmacia", "drogueria", "medicine", "medicina", "vitamin", "ibuprofen",
		"acetaminophen", "aspirin", "clinic", "clinica", "dental", "tylenol", "advil",
	},
	models.CategoryUtilities: {
		"electricity", "electric", "hydro", "water", "internet", "phone", "mobile",
		"energia", "acueducto", "telefono", "celular",
	},
	models.CategoryRent: {
		"rent", "alquiler", "arriendo", "lease", "renta",
	},
}

// minFuzzyLength keeps short words from matching unrelated keywords.
const minFuzzyLength = 5

// KeywordProvider labels descriptions from a keyword table, tolerating one
// OCR typo in longer words. It works offline and never fails.
type KeywordProvider struct {
	exact map[string]models.Category
	fuzzy []string
}

func NewKeywordProvider(table map[models.Category][]string) *KeywordProvider {
	if table == nil {
		table = defaultKeywords
	}
	p := &KeywordProvider{exact: make(map[string]models.Category)}
	for _, category := range models.Categories {
		for _, word := range table[category] {
			word = strings.ToLower(word)
			if _, dup := p.exact[word]; dup {
				continue
			}
			p.exact[word] = category
			if len([]rune(word)) >= minFuzzyLength {
				p.fuzzy = append(p.fuzzy, word)
			}
		}
	}
	sort.Strings(p.fuzzy)
	return p
}

func (p *KeywordProvider) Labels(_ context.Context, descriptions []string) ([]string, error) {
	labels := make([]string, len(descriptions))
	for i, d := range descriptions {
		labels[i] = string(p.match(d))
	}
	return labels, nil
}

func (p *KeywordProvider) match(description string) models.Category {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if c, ok := p.exact[w]; ok {
			return c
		}
	}
	for _, w := range words {
		if len([]rune(w)) < minFuzzyLength {
			continue
		}
		for _, k := range p.fuzzy {
			if levenshtein.ComputeDistance(w, k) <= 1 {
				return p.exact[k]
			}
		}
	}
	return models.CategoryOther
}
