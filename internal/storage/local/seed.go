package local

import (
	"strings"

	"github.com/listaszap/listaszap/internal/models"
)

func normName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// defaultCategories is the starter catalog installed for a fresh user.
func defaultCategories() []models.Category {
	return []models.Category{
		{ID: "default-carnes", Name: "Carnes", Color: "#ef4444"},
		{ID: "default-bebidas", Name: "Bebidas", Color: "#3b82f6"},
		{ID: "default-frutas", Name: "Frutas", Color: "#22c55e"},
		{ID: "default-verduras", Name: "Verduras e Legumes", Color: "#16a34a"},
		{ID: "default-padaria", Name: "Padaria", Color: "#f59e0b"},
		{ID: "default-laticinios", Name: "Laticínios", Color: "#60a5fa"},
		{ID: "default-mercearia", Name: "Mercearia", Color: "#a78bfa"},
		{ID: "default-higiene", Name: "Higiene Pessoal", Color: "#06b6d4"},
		{ID: "default-limpeza", Name: "Produtos de Limpeza", Color: "#10b981"},
		{ID: "default-pet", Name: "Pet", Color: "#f472b6"},
		{ID: "default-bebes", Name: "Bebês", Color: "#fb923c"},
	}
}

func defaultItems() []models.Item {
	return []models.Item{
		{ID: "seed-picanha", Name: "Picanha", CategoryID: "default-carnes", Price: 70, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-frango", Name: "Frango (kg)", CategoryID: "default-carnes", Price: 14.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-acem", Name: "Acém (kg)", CategoryID: "default-carnes", Price: 32.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-agua-1l", Name: "Água 1,5L", CategoryID: "default-bebidas", Price: 3.5, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-refrigerante-2l", Name: "Refrigerante 2L", CategoryID: "default-bebidas", Price: 9.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-suco-caixa", Name: "Suco de Caixinha", CategoryID: "default-bebidas", Price: 4.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-banana", Name: "Banana (kg)", CategoryID: "default-frutas", Price: 7.5, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-maca", Name: "Maçã (kg)", CategoryID: "default-frutas", Price: 9.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-laranja", Name: "Laranja (kg)", CategoryID: "default-frutas", Price: 6.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-tomate", Name: "Tomate (kg)", CategoryID: "default-verduras", Price: 8.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-alface", Name: "Alface", CategoryID: "default-verduras", Price: 3.5, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-cebola", Name: "Cebola (kg)", CategoryID: "default-verduras", Price: 6.5, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-pao-frances", Name: "Pão Francês (kg)", CategoryID: "default-padaria", Price: 17.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-pao-de-forma", Name: "Pão de Forma", CategoryID: "default-padaria", Price: 8.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-leite", Name: "Leite 1L", CategoryID: "default-laticinios", Price: 4.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-queijo", Name: "Queijo Mussarela (kg)", CategoryID: "default-laticinios", Price: 39.9, DefaultUnit: models.UnitWeight, DefaultQty: 1},
		{ID: "seed-arroz", Name: "Arroz 5kg", CategoryID: "default-mercearia", Price: 24.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-feijao", Name: "Feijão 1kg", CategoryID: "default-mercearia", Price: 9.5, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-acucar", Name: "Açúcar 1kg", CategoryID: "default-mercearia", Price: 4.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-oleo", Name: "Óleo 900ml", CategoryID: "default-mercearia", Price: 7.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-sal", Name: "Sal 1kg", CategoryID: "default-mercearia", Price: 3.2, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-sabonete", Name: "Sabonete", CategoryID: "default-higiene", Price: 2.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-pasta-dente", Name: "Pasta de Dente", CategoryID: "default-higiene", Price: 5.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-detergente", Name: "Detergente", CategoryID: "default-limpeza", Price: 2.99, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-desinfetante", Name: "Desinfetante", CategoryID: "default-limpeza", Price: 7.5, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-racao", Name: "Ração 1kg", CategoryID: "default-pet", Price: 15.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
		{ID: "seed-fralda", Name: "Fralda", CategoryID: "default-bebes", Price: 49.9, DefaultUnit: models.UnitPiece, DefaultQty: 1},
	}
}
