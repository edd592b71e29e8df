package profile

// Rank звание детектива
type Rank string

const (
	RankNovice          Rank = "Novice"
	RankApprentice      Rank = "Apprentice"
	RankInvestigator    Rank = "Investigator"
	RankDetective       Rank = "Detective"
	RankSeniorDetective Rank = "Senior Detective"
	RankInspector       Rank = "Inspector"
	RankChiefInspector  Rank = "Chief Inspector"
	RankMaster          Rank = "Master"
)

// Tier ступень таблицы званий
type Tier struct {
	MinScore int
	Rank     Rank
}

// Tiers по возрастанию минимального счета
var Tiers = []Tier{
	{0, RankNovice},
	{3, RankApprentice},
	{10, RankInvestigator},
	{25, RankDetective},
	{50, RankSeniorDetective},
	{100, RankInspector},
	{200, RankChiefInspector},
	{500, RankMaster},
}

// wrongGuessesPerPenalty каждые три ошибки снимают одно раскрытое дело
const wrongGuessesPerPenalty = 3

// Score вычисляет счет: раскрытые дела минус штраф за ошибки, не меньше нуля
func Score(casesWon, wrongGuesses int) int {
	if casesWon < 0 {
		casesWon = 0
	}
	if wrongGuesses < 0 {
		wrongGuesses = 0
	}
	score := casesWon - wrongGuesses/wrongGuessesPerPenalty
	if score < 0 {
		return 0
	}
	return score
}

// ResolveRank возвращает звание старшей ступени, минимум которой не превышает счет
func ResolveRank(casesWon, wrongGuesses int) Rank {
	return tierFor(Score(casesWon, wrongGuesses)).Rank
}

// NextRank возвращает следующую ступень и недостающий счет.
// Для высшего звания ok равен false.
func NextRank(casesWon, wrongGuesses int) (next Tier, remaining int, ok bool) {
	score := Score(casesWon, wrongGuesses)
	for _, tier := range Tiers {
		if tier.MinScore > score {
			return tier, tier.MinScore - score, true
		}
	}
	return Tier{}, 0, false
}

func tierFor(score int) Tier {
	for i := len(Tiers) - 1; i >= 0; i-- {
		if Tiers[i].MinScore <= score {
			return Tiers[i]
		}
	}
	return Tiers[0]
}
