package extract

import "strings"

// extractionSystem frames the extraction call. Kept short; the probing
// question carries the route-specific intent.
const extractionSystem = "Du extrahierst die wichtigsten Fakten aus den beigefügten Dokumenten. " +
	"Antworte ausschließlich mit kurzen Stichpunkten (•), ohne Einleitung und ohne Schlussbemerkung."

// probingQuestion derives 1-3 probing questions for the extraction call from
// the generator route. Social content needs other facts than press content.
func probingQuestion(route string) string {
	switch classifyRoute(route) {
	case routeSocial:
		return strings.Join([]string{
			"Welche Kernbotschaften und Fakten eignen sich für einen Social-Media-Beitrag?",
			"Welche Zahlen, Orte oder Termine müssen korrekt übernommen werden?",
			"Gibt es Zitate oder Formulierungen, die sich direkt verwenden lassen?",
		}, "\n")
	case routePress:
		return strings.Join([]string{
			"Welche Fakten beantworten Wer, Was, Wann, Wo und Warum?",
			"Welche Zahlen, Beschlüsse und Zitate sind belegbar und zitierfähig?",
			"Welcher Hintergrund ist für die Einordnung unverzichtbar?",
		}, "\n")
	default:
		return strings.Join([]string{
			"Was sind die wichtigsten Fakten und Aussagen der Dokumente?",
			"Welche Details dürfen bei einer Zusammenfassung nicht verloren gehen?",
		}, "\n")
	}
}

type routeClass int

const (
	routeGeneric routeClass = iota
	routeSocial
	routePress
)

func classifyRoute(route string) routeClass {
	switch strings.ToLower(strings.TrimSpace(route)) {
	case "social", "instagram", "facebook":
		return routeSocial
	case "pressemitteilung", "antrag", "rede":
		return routePress
	default:
		return routeGeneric
	}
}
