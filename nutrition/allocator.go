package nutrition

import "nutriplan"

const defaultSlotCount = 4

// slotSets lists the meal slots for each supported slot count, in day order.
var slotSets = map[int][]nutriplan.Slot{
	3: {nutriplan.SlotBreakfast, nutriplan.SlotLunch, nutriplan.SlotDinner},
	4: {nutriplan.SlotBreakfast, nutriplan.SlotLunch, nutriplan.SlotAfternoonSnack, nutriplan.SlotDinner},
	5: {nutriplan.SlotBreakfast, nutriplan.SlotMorningSnack, nutriplan.SlotLunch, nutriplan.SlotAfternoonSnack, nutriplan.SlotDinner},
	6: {nutriplan.SlotBreakfast, nutriplan.SlotMorningSnack, nutriplan.SlotLunch, nutriplan.SlotAfternoonSnack, nutriplan.SlotDinner, nutriplan.SlotEveningSnack},
}

// traditionalShares is the weighted distribution per slot count.
var traditionalShares = map[int]map[nutriplan.Slot]float64{
	3: {
		nutriplan.SlotBreakfast: 0.30,
		nutriplan.SlotLunch:     0.40,
		nutriplan.SlotDinner:    0.30,
	},
	4: {
		nutriplan.SlotBreakfast:      0.25,
		nutriplan.SlotLunch:          0.35,
		nutriplan.SlotAfternoonSnack: 0.15,
		nutriplan.SlotDinner:         0.25,
	},
	5: {
		nutriplan.SlotBreakfast:      0.20,
		nutriplan.SlotMorningSnack:   0.10,
		nutriplan.SlotLunch:          0.35,
		nutriplan.SlotAfternoonSnack: 0.15,
		nutriplan.SlotDinner:         0.20,
	},
	6: {
		nutriplan.SlotBreakfast:      0.20,
		nutriplan.SlotMorningSnack:   0.10,
		nutriplan.SlotLunch:          0.30,
		nutriplan.SlotAfternoonSnack: 0.10,
		nutriplan.SlotDinner:         0.20,
		nutriplan.SlotEveningSnack:   0.10,
	},
}

// SlotsFor returns the slot set for a slot count, falling back to four slots.
func SlotsFor(slotCount int) []nutriplan.Slot {
	slots, ok := slotSets[slotCount]
	if !ok {
		slots = slotSets[defaultSlotCount]
	}
	return append([]nutriplan.Slot(nil), slots...)
}

// Shares returns the per-slot share of the day for a slot count and policy.
func Shares(slotCount int, policy nutriplan.DistributionPolicy) map[nutriplan.Slot]float64 {
	if _, ok := slotSets[slotCount]; !ok {
		slotCount = defaultSlotCount
	}
	slots := slotSets[slotCount]

	out := make(map[nutriplan.Slot]float64, len(slots))
	if policy == nutriplan.DistributionEquitable {
		share := 1 / float64(len(slots))
		for _, s := range slots {
			out[s] = share
		}
		return out
	}

	for s, share := range traditionalShares[slotCount] {
		out[s] = share
	}
	return out
}

// Allocate splits the daily targets across the slots of a day.
func Allocate(targets nutriplan.NutritionTargets, slotCount int, policy nutriplan.DistributionPolicy) nutriplan.MealAllocation {
	if policy != nutriplan.DistributionEquitable {
		policy = nutriplan.DistributionTraditional
	}

	shares := Shares(slotCount, policy)
	slots := SlotsFor(slotCount)
	daily := float64(targets.DailyCalories)

	alloc := nutriplan.MealAllocation{
		Policy: policy,
		Slots:  make([]nutriplan.SlotTarget, 0, len(slots)),
	}
	for _, s := range slots {
		share := shares[s]
		alloc.Slots = append(alloc.Slots, nutriplan.SlotTarget{
			Slot:     s,
			Share:    share,
			Calories: daily * share,
			Grams:    targets.Grams.Scale(share),
		})
	}
	return alloc
}
