package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"pensionguru/backend/internal/store"
)

type seedMessage struct {
	Role    string
	Content string
}

var demoTranscript = []seedMessage{
	{Role: store.RoleUser, Content: "Hi, I'm in Ireland and I'm 45 years old."},
	{Role: store.RoleAssistant, Content: "Thanks! What's your annual income, and when would you like to retire?"},
	{Role: store.RoleUser, Content: "I earn €60,000 and want to retire at 66."},
	{Role: store.RoleAssistant, Content: "Got it. How many years of PRSI contributions do you have so far?"},
	{Role: store.RoleUser, Content: "22"},
}

func main() {
	var (
		mode     string
		userID   string
		name     string
		database string
	)

	flag.StringVar(&mode, "mode", "seed", "seed or cleanup")
	flag.StringVar(&userID, "user-id", "demo-user", "user id to seed or clean up")
	flag.StringVar(&name, "name", "Demo User", "display name for the seeded user")
	flag.StringVar(&database, "db", "", "DATABASE_URL override")
	flag.Parse()

	ctx := context.Background()
	dbURL := strings.TrimSpace(database)
	if dbURL == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dbURL == "" {
		dbURL = "sqlite://data/pensionguru.db"
	}

	st, err := store.Open(ctx, dbURL)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "cleanup", "delete", "remove":
		result, err := st.Forget(ctx, userID)
		if err != nil {
			log.Fatalf("cleanup failed: %v", err)
		}
		log.Printf("cleanup done: user=%s deleted_messages=%d deleted_profile=%t", userID, result.DeletedMessages, result.DeletedProfile)
		return
	case "seed":
	default:
		log.Fatalf("unsupported mode %q (use seed or cleanup)", mode)
	}

	if _, _, err := st.UpsertUser(ctx, store.User{ID: userID, Name: name}); err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	fields := []store.FieldUpdate{
		{Field: store.FieldRegion, Value: store.RegionIreland},
		{Field: store.FieldAge, Value: 45},
		{Field: store.FieldIncome, Value: 60000},
		{Field: store.FieldRetirementAge, Value: 66},
		{Field: store.FieldRiskProfile, Value: store.RiskMedium},
		{Field: store.FieldContributionYears, Value: 22},
	}
	for _, update := range fields {
		if err := st.SetField(ctx, userID, update.Field, update.Value); err != nil {
			log.Fatalf("set %s: %v", update.Field, err)
		}
	}

	existing, err := st.AllMessages(ctx, userID)
	if err != nil {
		log.Fatalf("load transcript: %v", err)
	}
	seeded := 0
	if len(existing) > 0 {
		log.Printf("transcript already present (%d messages); leaving it as is", len(existing))
	} else {
		for _, msg := range demoTranscript {
			if _, err := st.AppendMessage(ctx, userID, msg.Role, msg.Content); err != nil {
				log.Fatalf("append message: %v", err)
			}
			seeded++
		}
	}

	log.Printf("seed done: user=%s fields=%d messages=%d", userID, len(fields), seeded)
}
