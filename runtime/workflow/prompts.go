package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// System role templates per generator type. German is the product language;
// the assembler appends the locale-rendered date.

const (
	baseSystem = "Du bist ein erfahrener Redakteur für politische Kommunikation. " +
		"Du schreibst klar, faktenbasiert und in der Sprache {{SPRACHE}}."

	questionsSystem = "Du bist ein sorgfältiger Redaktionsassistent. Du prüfst einen Inhaltsplan " +
		"und stellst nur Rückfragen, deren Antworten das Ergebnis wirklich verbessern."

	revisionSystem = "Du bist ein Redakteur, der einen Inhaltsplan anhand von Nutzerantworten überarbeitet. " +
		"Übernimm alle Antworten inhaltlich korrekt und halte die Struktur des Plans bei."

	correctionSystem = "Du bist ein Redakteur, der einen Inhaltsplan anhand von freien Änderungswünschen " +
		"überarbeitet. Setze nur die gewünschten Änderungen um und lass alles andere unverändert."
)

func planSystem(generatorType string) string {
	return baseSystem + " " + generatorHint(generatorType) +
		" Erstelle zunächst einen strukturierten Inhaltsplan, noch nicht den fertigen Text."
}

func productionSystem(generatorType string) string {
	return baseSystem + " " + generatorHint(generatorType) +
		" Setze den freigegebenen Plan vollständig in den fertigen Text um."
}

func generatorHint(generatorType string) string {
	switch strings.ToLower(strings.TrimSpace(generatorType)) {
	case "pressemitteilung":
		return "Textsorte: Pressemitteilung mit Überschrift, Einstieg und Zitat."
	case "social":
		return "Textsorte: Social-Media-Beitrag, prägnant und mit klarer Botschaft."
	case "antrag":
		return "Textsorte: politischer Antrag mit Antragstext und Begründung."
	case "rede":
		return "Textsorte: Rede mit Einstieg, Argumentation und starkem Schluss."
	default:
		return "Textsorte: allgemeiner Kommunikationstext."
	}
}

// planOutputFormat instructs the model to close the plan with a summary and
// a confidence line that parsePlan recovers.
const planOutputFormat = "Gliedere den Plan in überschriebene Abschnitte. Wo mehrere Varianten denkbar sind, " +
	"liste sie als \"Option A: ...\", \"Option B: ...\" auf. Beende die Antwort mit genau zwei Zeilen:\n" +
	"ZUSAMMENFASSUNG: <ein Satz>\n" +
	"KONFIDENZ: <Wert zwischen 0 und 1>"

// planRewriteOutputFormat is shared by revision and correction.
const planRewriteOutputFormat = "Gib den vollständigen überarbeiteten Plan aus, im selben Format wie der ursprüngliche Plan. " +
	"Keine Erläuterungen außerhalb des Plans."

// questionsOutputFormat requests the machine-readable question payload.
const questionsOutputFormat = "Antworte ausschließlich mit einem JSON-Objekt in dieser Form:\n" +
	`{"needs_clarification": true|false, "questions": [{"id": "q1", "prompt": "...", ` +
	`"type": "multiple_choice|text|yes_no", "options": ["..."], "rationale": "..."}]}` +
	"\nStelle höchstens 5 Fragen. Wenn keine Rückfragen nötig sind: needs_clarification=false und eine leere Liste."

func questionsRequest(content, planText string) string {
	return fmt.Sprintf("Ursprüngliche Anfrage:\n%s\n\nInhaltsplan:\n%s\n\n"+
		"Welche Rückfragen an die Nutzerin oder den Nutzer sind nötig, bevor der Text erstellt wird?",
		content, planText)
}

func revisionRequest(planText, answers string) string {
	return fmt.Sprintf("Inhaltsplan:\n%s\n\nANTWORTEN AUF RÜCKFRAGEN:\n%s", planText, answers)
}

func correctionRequest(planText, correction string) string {
	return fmt.Sprintf("Inhaltsplan:\n%s\n\nÄNDERUNGSWÜNSCHE:\n%s", planText, correction)
}

func productionTask(planText string) string {
	return "Setze den folgenden freigegebenen Plan um:\n\n" + planText
}

var (
	summaryRe    = regexp.MustCompile(`(?m)^ZUSAMMENFASSUNG:\s*(.+)$`)
	confidenceRe = regexp.MustCompile(`(?m)^KONFIDENZ:\s*([0-9]+(?:[.,][0-9]+)?)\s*$`)
)

// parsePlan splits the generated plan into plan text, summary and
// confidence. The trailing marker lines are removed from the plan text.
// Missing or unparseable markers degrade softly: empty summary and a neutral
// confidence of 0.5.
func parsePlan(text string) (planText, summary string, confidence float64) {
	confidence = 0.5
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		summary = strings.TrimSpace(m[1])
	}
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil && v >= 0 && v <= 1 {
			confidence = v
		}
	}
	planText = summaryRe.ReplaceAllString(text, "")
	planText = confidenceRe.ReplaceAllString(planText, "")
	return strings.TrimSpace(planText), summary, confidence
}
