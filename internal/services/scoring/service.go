// Package scoring computes guess correctness and point awards.
// Everything here is pure: results depend only on the arguments.
package scoring

import "strings"

const (
	// MaxGuessPoints is the base the k-th correct guesser's award counts down from
	MaxGuessPoints = 10
	// MinGuessPoints is the floor for any correct guess
	MinGuessPoints = 1
)

// IsCorrect reports whether a guess matches the word exactly, ignoring case only
func IsCorrect(guess, word string) bool {
	if word == "" {
		return false
	}
	return strings.EqualFold(guess, word)
}

// GuesserPoints returns the award for the k-th correct guess of a turn (k is 1-indexed)
func GuesserPoints(k int) int {
	return max(MaxGuessPoints-k, MinGuessPoints)
}

// TurnAwards returns the guesser awards for a turn with n correct guesses, in guess order
func TurnAwards(n int) []int {
	awards := make([]int, n)
	for i := range awards {
		awards[i] = GuesserPoints(i + 1)
	}
	return awards
}

// HighestAward returns the largest single award, or 0 for none
func HighestAward(awards []int) int {
	highest := 0
	for _, a := range awards {
		highest = max(highest, a)
	}
	return highest
}

// DrawerBonus returns the drawer's award once every guesser has guessed
func DrawerBonus(highestAward, correctGuessers int) int {
	if highestAward <= 0 || correctGuessers <= 0 {
		return 0
	}
	return (highestAward / 2) * correctGuessers
}
