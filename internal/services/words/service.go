package words

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/model"
)

// ChoiceCount is how many words a drawer is offered per turn
const ChoiceCount = 3

// Service holds the candidate words and draws random choices from them
type Service struct {
	random random.Random

	mu    sync.RWMutex
	words []string
}

// New creates a word bank seeded with the built-in word list
func New(random random.Random) *Service {
	s := &Service{random: random}
	s.words = normalize(defaultWords)
	return s
}

// LoadFromFile replaces the word list with the words in a file (one word per line).
// Blank lines and lines starting with '#' are skipped.
func (s *Service) LoadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return s.LoadWords(words)
}

// LoadWords directly replaces the word list (useful for testing)
func (s *Service) LoadWords(words []string) error {
	normalized := normalize(words)
	if len(normalized) == 0 {
		return model.ErrWordBankEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = normalized
	return nil
}

// WordCount returns the number of words in the bank
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Choose returns n distinct words in random order.
// If the bank holds fewer than n words, all of them are returned.
func (s *Service) Choose(n int) []string {
	s.mu.RLock()
	pool := make([]string, len(s.words))
	copy(pool, s.words)
	s.mu.RUnlock()

	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return []string{}
	}

	// Partial Fisher-Yates: the first n slots end up as a uniform sample
	for i := 0; i < n; i++ {
		j := i + s.random.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// normalize trims words and drops blanks and case-insensitive duplicates, keeping first occurrence
func normalize(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	result := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		key := strings.ToLower(word)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, word)
	}
	return result
}
