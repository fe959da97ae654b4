package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerMap_Scan_ParsesJSONB(t *testing.T) {
	// Arrange: JSONB из базы приходит как []byte
	raw := []byte(`{"0":"a","1":"c","5":"d"}`)

	var m AnswerMap

	// Act
	err := m.Scan(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "a", m[0])
	assert.Equal(t, "c", m[1])
	assert.Equal(t, "d", m[5])
}

func TestAnswerMap_Scan_HandlesNullAndEmpty(t *testing.T) {
	var m AnswerMap
	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m, "NULL из базы должен давать пустую карту")

	require.NoError(t, m.Scan([]byte{}))
	assert.Empty(t, m, "Пустой набор байтов должен давать пустую карту")
}

func TestAnswerMap_Value_EmptyMapIsEmptyObject(t *testing.T) {
	var m AnswerMap

	val, err := m.Value()

	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), val, "nil-карта должна сериализоваться в пустой объект, а не в NULL")
}

func TestAnswerMap_Value_SerializesAnswers(t *testing.T) {
	m := AnswerMap{0: "b", 3: "a"}

	val, err := m.Value()

	require.NoError(t, err)
	assert.JSONEq(t, `{"0":"b","3":"a"}`, string(val.([]byte)))
}

func TestValidateAttemptInput(t *testing.T) {
	tests := []struct {
		name           string
		score          int
		totalQuestions int
		timeSpent      float64
		wantErr        bool
	}{
		{"валидная попытка", 8, 10, 120, false},
		{"нулевой счёт допустим", 0, 10, 0, false},
		{"полный счёт допустим", 10, 10, 45.5, false},
		{"ноль вопросов", 0, 0, 10, true},
		{"отрицательное число вопросов", 0, -1, 10, true},
		{"счёт больше числа вопросов", 11, 10, 10, true},
		{"отрицательный счёт", -1, 10, 10, true},
		{"отрицательное время", 5, 10, -0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttemptInput(tt.score, tt.totalQuestions, tt.timeSpent)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAttempt_MarkCompleted(t *testing.T) {
	a := &Attempt{
		UserID:  "user_1",
		Subject: "mathematics",
		Mode:    ModeTimed,
	}

	err := a.MarkCompleted(7, 10, 93.4, AnswerMap{0: "a", 1: "b"})

	require.NoError(t, err)
	assert.True(t, a.Completed)
	assert.Equal(t, 7, a.Score)
	assert.Equal(t, 10, a.TotalQuestions)
	assert.InDelta(t, 93.4, a.TimeSpent, 0.001)
	assert.Equal(t, "a", a.Answers[0])
}

func TestAttempt_MarkCompleted_RejectsSecondCompletion(t *testing.T) {
	// Повторное завершение той же попытки (ретрай клиента) не должно
	// перезаписывать результат
	a := &Attempt{Completed: true, Score: 9, TotalQuestions: 10}

	err := a.MarkCompleted(1, 10, 5, nil)

	require.Error(t, err)
	assert.Equal(t, 9, a.Score, "Результат завершённой попытки не должен изменяться")
}

func TestAttempt_MarkCompleted_RejectsInvalidInput(t *testing.T) {
	a := &Attempt{}

	err := a.MarkCompleted(5, 0, 10, nil)

	require.Error(t, err)
	assert.False(t, a.Completed)
}

func TestAttempt_ScorePercent(t *testing.T) {
	a := &Attempt{Score: 8, TotalQuestions: 10}
	assert.InDelta(t, 80.0, a.ScorePercent(), 0.001)

	empty := &Attempt{}
	assert.Zero(t, empty.ScorePercent(), "Деление на ноль должно давать 0")
}

func TestNormalizeSubject(t *testing.T) {
	assert.Equal(t, "mathematics", NormalizeSubject("  Mathematics "))
	assert.Equal(t, "english", NormalizeSubject("ENGLISH"))
	assert.Equal(t, "", NormalizeSubject("   "))
}
