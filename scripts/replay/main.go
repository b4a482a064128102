// Command replay publishes a synthetic learning session onto the inbound
// topics so a locally running pipeline has traffic to score. Events carry
// event-time timestamps spaced to fill the configured number of windows.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type envelope struct {
	ID        string `json:"id"`
	StudentID string `json:"studentId"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Source    string `json:"source"`
}

type quizAnswer struct {
	Envelope    envelope `json:"envelope"`
	QuestionID  string   `json:"questionId"`
	IsCorrect   bool     `json:"isCorrect"`
	TimeSpentMs int64    `json:"timeSpentMs"`
	SkillTag    string   `json:"skillTag"`
}

type sessionActivity struct {
	Envelope    envelope `json:"envelope"`
	EventType   string   `json:"eventType"`
	PageID      *string  `json:"pageId,omitempty"`
	DwellTimeMs *int64   `json:"dwellTimeMs,omitempty"`
}

var skillTags = []string{"algebra", "geometry", "fractions", "statistics"}

func main() {
	var (
		brokers      string
		quizTopic    string
		sessionTopic string
		students     int
		answers      int
		correctRate  float64
		gap          time.Duration
		seed         int64
	)

	flag.StringVar(&brokers, "brokers", "localhost:9092", "comma-separated Kafka brokers")
	flag.StringVar(&quizTopic, "quiz-topic", "quiz.answers", "quiz answers topic")
	flag.StringVar(&sessionTopic, "session-topic", "session.events", "session events topic")
	flag.IntVar(&students, "students", 3, "number of synthetic students")
	flag.IntVar(&answers, "answers", 12, "quiz answers per student")
	flag.Float64Var(&correctRate, "correct-rate", 0.75, "probability of a correct answer")
	flag.DurationVar(&gap, "gap", 8*time.Second, "event-time gap between answers")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(seed))
	brokerList := strings.Split(brokers, ",")

	quizWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokerList...),
		Topic:    quizTopic,
		Balancer: &kafka.Hash{},
	}
	sessionWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokerList...),
		Topic:    sessionTopic,
		Balancer: &kafka.Hash{},
	}
	defer quizWriter.Close()    //nolint:errcheck
	defer sessionWriter.Close() //nolint:errcheck

	ctx := context.Background()
	base := time.Now().Add(-time.Duration(answers) * gap).UnixMilli()
	published := 0

	for s := 0; s < students; s++ {
		studentID := fmt.Sprintf("student-%03d", s+1)
		sessionID := uuid.NewString()

		for i := 0; i < answers; i++ {
			eventTime := base + int64(i)*gap.Milliseconds()

			answer := quizAnswer{
				Envelope: envelope{
					ID:        uuid.NewString(),
					StudentID: studentID,
					SessionID: sessionID,
					Timestamp: eventTime,
					Type:      "quiz.answered",
					Source:    "replay",
				},
				QuestionID:  fmt.Sprintf("q-%d", i+1),
				IsCorrect:   rng.Float64() < correctRate,
				TimeSpentMs: 4000 + rng.Int63n(12000),
				SkillTag:    skillTags[rng.Intn(len(skillTags))],
			}
			if err := publish(ctx, quizWriter, studentID, answer); err != nil {
				log.Fatalf("publish quiz answer: %v", err)
			}
			published++

			// Sprinkle navigation between answers.
			if i%3 == 0 {
				pageID := fmt.Sprintf("page-%d", i+1)
				activity := sessionActivity{
					Envelope: envelope{
						ID:        uuid.NewString(),
						StudentID: studentID,
						SessionID: sessionID,
						Timestamp: eventTime + 1000,
						Type:      "session.activity",
						Source:    "replay",
					},
					EventType: "NAVIGATION",
					PageID:    &pageID,
				}
				if err := publish(ctx, sessionWriter, studentID, activity); err != nil {
					log.Fatalf("publish session event: %v", err)
				}
				published++
			}
		}
	}

	log.Printf("published %d events for %d students (seed %d)", published, students, seed)
}

func publish(ctx context.Context, writer *kafka.Writer, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}
