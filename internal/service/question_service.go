package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// QuestionOptions - варианты ответа вопроса
type QuestionOptions struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
}

// Question - вопрос из внешнего банка вопросов.
// Содержимое вопросов не хранится локально: сохраняются только ответы
// пользователя и итоговый счёт.
type Question struct {
	ID       int             `json:"id"`
	Question string          `json:"question"`
	Option   QuestionOptions `json:"option"`
	Section  string          `json:"section"`
	Image    string          `json:"image"`
	Answer   string          `json:"answer"`
	Solution string          `json:"solution"`
	ExamType string          `json:"examtype"`
	ExamYear string          `json:"examyear"`
}

// SubjectsResponse - ответ банка вопросов со списком предметов
type SubjectsResponse struct {
	Message  string            `json:"message"`
	Status   int               `json:"status"`
	Subjects map[string]string `json:"subjects"`
}

// QuestionBatchResponse - ответ банка вопросов с набором вопросов
type QuestionBatchResponse struct {
	Subject string     `json:"subject"`
	Status  int        `json:"status"`
	Data    []Question `json:"data"`
}

// QuestionService - клиент внешнего банка вопросов. Внешний сервис считается
// надёжным коллаборатором: его сбои пробрасываются вызывающей стороне как
// повторяемые ошибки, локальное состояние не меняется.
type QuestionService struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewQuestionService создает новый клиент банка вопросов
func NewQuestionService(baseURL, accessToken string, timeout time.Duration) (*QuestionService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("question bank base URL is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("question bank access token is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &QuestionService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

// fetch выполняет запрос к банку вопросов с токеном доступа в заголовке
func (s *QuestionService) fetch(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("AccessToken", s.accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("question bank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("question bank returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read question bank response: %w", err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode question bank response: %w", err)
	}
	return nil
}

// GetSubjects возвращает список поддерживаемых предметов
func (s *QuestionService) GetSubjects(ctx context.Context) (*SubjectsResponse, error) {
	var resp SubjectsResponse
	if err := s.fetch(ctx, "/q-subjects", &resp); err != nil {
		log.Printf("[QuestionService] Ошибка получения предметов: %v", err)
		return nil, err
	}
	return &resp, nil
}

// GetQuestions возвращает вопросы по предмету с необязательными фильтрами
// по типу экзамена и году
func (s *QuestionService) GetQuestions(ctx context.Context, subject, examType string, year int) ([]Question, error) {
	params := url.Values{}
	params.Set("subject", subject)
	if examType != "" {
		params.Set("type", examType)
	}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var questions []Question
	if err := s.fetch(ctx, "/q?"+params.Encode(), &questions); err != nil {
		log.Printf("[QuestionService] Ошибка получения вопросов subject=%s: %v", subject, err)
		return nil, err
	}
	return questions, nil
}

// GetQuestionBatch возвращает фиксированный набор вопросов по предмету и году
// для запуска квиза
func (s *QuestionService) GetQuestionBatch(ctx context.Context, subject, year string, count int) (*QuestionBatchResponse, error) {
	if count < 1 {
		count = 20
	}

	params := url.Values{}
	params.Set("subject", subject)
	if year != "" {
		params.Set("year", year)
	}
	params.Set("random", "false")

	var resp QuestionBatchResponse
	endpoint := fmt.Sprintf("/m/%d?%s", count, params.Encode())
	if err := s.fetch(ctx, endpoint, &resp); err != nil {
		log.Printf("[QuestionService] Ошибка получения набора вопросов subject=%s year=%s: %v", subject, year, err)
		return nil, err
	}
	return &resp, nil
}

// ReportQuestion отправляет жалобу на вопрос в банк вопросов
func (s *QuestionService) ReportQuestion(ctx context.Context, subject string, questionID int, message string) error {
	form := url.Values{}
	form.Set("subject", subject)
	form.Set("question_id", strconv.Itoa(questionID))
	if message != "" {
		form.Set("message", message)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/r",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("AccessToken", s.accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("question report failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("question bank returned %s", resp.Status)
	}
	return nil
}
