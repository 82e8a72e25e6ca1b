package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/drawguess/internal/dependencies/mocks"
	"github.com/mcoot/drawguess/internal/model"
)

type ServiceSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.service = New(s.random)
}

func (s *ServiceSuite) TestDefaultWordsLoaded() {
	s.Greater(s.service.WordCount(), ChoiceCount)
}

func (s *ServiceSuite) TestChooseReturnsDistinctWords() {
	s.Require().NoError(s.service.LoadWords([]string{"cat", "dog", "fish", "bird"}))
	s.random.QueueIntn(3, 0, 1)

	choices := s.service.Choose(3)
	// i=0 swaps with 3, i=1 stays, i=2 swaps with 3
	s.Equal([]string{"bird", "dog", "cat"}, choices)
}

func (s *ServiceSuite) TestChooseIsAlwaysDistinct() {
	s.Require().NoError(s.service.LoadWords([]string{"a", "b", "c", "d", "e"}))
	for i := 0; i < 5; i++ {
		s.random.QueueIntn(i, 4-i, 2)
		choices := s.service.Choose(3)
		seen := map[string]bool{}
		for _, c := range choices {
			s.False(seen[c], "duplicate choice %q", c)
			seen[c] = true
		}
		s.Len(choices, 3)
	}
}

func (s *ServiceSuite) TestChooseMoreThanAvailable() {
	s.Require().NoError(s.service.LoadWords([]string{"cat", "dog"}))

	choices := s.service.Choose(3)
	s.ElementsMatch([]string{"cat", "dog"}, choices)
}

func (s *ServiceSuite) TestChooseDoesNotMutateBank() {
	s.Require().NoError(s.service.LoadWords([]string{"cat", "dog", "fish"}))
	s.random.QueueIntn(2, 1)

	_ = s.service.Choose(2)
	s.ElementsMatch([]string{"cat", "dog", "fish"}, s.service.Choose(3))
}

func (s *ServiceSuite) TestLoadWordsDeduplicatesCaseInsensitively() {
	s.Require().NoError(s.service.LoadWords([]string{"Cat", "cat", " dog ", "", "CAT"}))
	s.Equal(2, s.service.WordCount())
}

func (s *ServiceSuite) TestLoadWordsRejectsEmptyList() {
	err := s.service.LoadWords([]string{"", "  "})
	s.ErrorIs(err, model.ErrWordBankEmpty)
}

func (s *ServiceSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "words.txt")
	content := "# animals\ncat\n\ndog\nhorse\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	err := s.service.LoadFromFile(path)
	s.Require().NoError(err)
	s.Equal(3, s.service.WordCount())
}

func (s *ServiceSuite) TestLoadFromMissingFile() {
	err := s.service.LoadFromFile(filepath.Join(s.T().TempDir(), "missing.txt"))
	s.Error(err)
}
