package domain

type ReportInfo struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Каталог отчетов в порядке отображения.
var Reports = []ReportInfo{
	{Slug: "victims-per-month", Name: "Vítimas por Mês"},
	{Slug: "violence-types", Name: "Tipos de Violência"},
	{Slug: "authors-by-municipality", Name: "Autores por Município"},
	{Slug: "avg-children", Name: "Média de Filhos (Vítimas e Autores)"},
	{Slug: "housing-income", Name: "Casos por Moradia × Renda"},
	{Slug: "age-distribution", Name: "Distribuição Etária (Vít/Aut)"},
}

// GroupCount — строка группировки вида {_id, count}.
type GroupCount struct {
	ID    string `json:"_id"`
	Count int64  `json:"count"`
}

type AvgChildren struct {
	VictimsAvg float64 `json:"victimsAvg"`
	AuthorsAvg float64 `json:"authorsAvg"`
}

type HousingIncome struct {
	Housing string `json:"housing"`
	Income  string `json:"income"`
	Count   int64  `json:"count"`
}

type AgeBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type AgeDistribution struct {
	Victims []AgeBucket `json:"victims"`
	Authors []AgeBucket `json:"authors"`
}

// AgeLabel раскладывает возраст по корзинам <18, 18–30, 31–50, >50.
func AgeLabel(age int) string {
	switch {
	case age < 18:
		return "<18"
	case age < 31:
		return "18–30"
	case age < 51:
		return "31–50"
	default:
		return ">50"
	}
}
