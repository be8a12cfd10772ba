package keys

// builtinAliases is the shipped alias table: canonical key -> surface forms
// in English, Polish and Russian.
var builtinAliases = map[string][]string{
	"project name": {
		"project name", "name of the project", "project title", "title", "project",
		"what is the project called", "nazwa projektu", "nazwa", "tytuł projektu",
		"название проекта", "название",
	},
	"codename": {"code name", "codename", "kryptonim", "кодовое название"},
	"city": {
		"office", "location", "where is the office", "office location", "headquarters",
		"hq", "address", "miasto", "biuro", "lokalizacja", "gdzie jest biuro", "adres",
		"город", "офис", "адрес",
	},
	Overview: {
		"project overview", "summary", "description", "project description", "about",
		"opis", "opis projektu", "przegląd", "podsumowanie", "обзор", "описание",
	},
	"client": {"customer", "client name", "klient", "zleceniodawca", "заказчик", "клиент"},
	"budget": {"cost", "price", "estimated budget", "budżet", "koszt", "бюджет", "стоимость"},
	"deadline": {
		"due date", "end date", "delivery date", "when is the deadline", "termin",
		"termin oddania", "дедлайн", "срок",
	},
	"start date": {"kickoff", "start", "kick off date", "data rozpoczęcia", "начало"},
	"contact": {
		"contact person", "email", "e mail", "contact email", "kontakt", "osoba kontaktowa",
		"контакт", "почта",
	},
	"project manager": {"pm", "manager", "project lead", "kierownik projektu", "менеджер проекта"},
	"team":            {"team members", "members", "zespół", "команда"},
	"tech stack":      {"technology", "technologies", "stack", "technologie", "технологии"},
	"language":        {"languages", "język", "języki", "язык"},
	"website":         {"url", "site", "web site", "homepage", "strona", "strona www", "сайт"},
	"phone":           {"phone number", "telephone", "telefon", "numer telefonu", "телефон"},
	"working hours":   {"office hours", "hours", "opening hours", "godziny pracy", "часы работы"},
	"sla":             {"service level", "service level agreement", "support hours", "umowa sla"},
	"status":          {"project status", "state", "stan", "статус"},
	"goal":            {"goals", "objective", "objectives", "cel", "cele", "цель"},
}

// builtinAmbiguous lists aliases with several plausible meanings, most
// likely first.
var builtinAmbiguous = map[string][]string{
	"name": {"project name", "codename"},
	"date": {"deadline", "start date"},
	"when": {"deadline", "start date"},
	"who":  {"project manager", "contact"},
}

// DefaultTable returns a fresh table loaded with the built-in aliases.
func DefaultTable() *Table {
	t := NewTable()
	for _, canon := range sortedKeys(builtinAliases) {
		t.Add(canon, builtinAliases[canon]...)
	}
	for _, alias := range sortedKeys(builtinAmbiguous) {
		t.AddAmbiguous(alias, builtinAmbiguous[alias]...)
	}
	return t
}
