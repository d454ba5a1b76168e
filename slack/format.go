package slack

import (
	"fmt"
	"strings"

	"nutriplan"
)

var slotLabels = map[nutriplan.Slot]string{
	nutriplan.SlotBreakfast:      "Desayuno",
	nutriplan.SlotMorningSnack:   "Colación AM",
	nutriplan.SlotLunch:          "Almuerzo",
	nutriplan.SlotAfternoonSnack: "Merienda",
	nutriplan.SlotDinner:         "Cena",
	nutriplan.SlotEveningSnack:   "Colación PM",
}

func slotLabel(s nutriplan.Slot) string {
	if l, ok := slotLabels[s]; ok {
		return l
	}
	return string(s)
}

// FormatPlan renders a plan result as Slack mrkdwn text.
func FormatPlan(result nutriplan.PlanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Plan nutricional* `%s`\n", result.RunID)
	fmt.Fprintf(&b, "Objetivo diario: *%d kcal* (HC %.0f g · P %.0f g · G %.0f g)\n",
		result.Targets.DailyCalories,
		result.Targets.Grams.Carbs, result.Targets.Grams.Protein, result.Targets.Grams.Fat,
	)

	for _, sel := range result.OrderedSelections() {
		target, _ := result.Allocation.Target(sel.Slot)
		fmt.Fprintf(&b, "• *%s*: %s (%.0f / %.0f kcal)", slotLabel(sel.Slot), sel.Name, sel.Calories, target.Calories)
		switch sel.Origin {
		case nutriplan.OriginSubstituted:
			b.WriteString(" _sustituida_")
		case nutriplan.OriginPlaceholder:
			b.WriteString(" _provisoria_")
		}
		b.WriteByte('\n')
	}

	for _, slot := range result.MissingSlots() {
		fmt.Fprintf(&b, "• *%s*: sin receta, requiere revisión\n", slotLabel(slot))
	}

	s := result.Summary
	fmt.Fprintf(&b, "Validación: %d candidatas, %d válidas, %d sustituidas, %d descartadas, %d sin verificar",
		s.CandidatesSent, s.Validated, s.Substituted, s.Dropped, s.Unverified)
	if s.Placeholder {
		b.WriteString(" (plan provisorio)")
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n_Advertencias:_")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "\n> %s", w)
		}
	}

	return b.String()
}
