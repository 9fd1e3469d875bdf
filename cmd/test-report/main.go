package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vargen/social-analytics/internal/aggregate"
	"github.com/vargen/social-analytics/internal/config"
	"github.com/vargen/social-analytics/internal/corpus"
	"github.com/vargen/social-analytics/internal/filter"
	"github.com/vargen/social-analytics/internal/models"
	"github.com/vargen/social-analytics/internal/report"
)

// TestStorage serves the bundled sample snapshot from memory
type TestStorage struct {
	files map[string][]byte
}

func (t *TestStorage) Store(name string, data []byte) error {
	t.files[name] = data
	return nil
}

func (t *TestStorage) Retrieve(name string) ([]byte, error) {
	data, ok := t.files[name]
	if !ok {
		return nil, fmt.Errorf("no such file %s", name)
	}
	return data, nil
}

func (t *TestStorage) List(prefix string) ([]string, error) {
	return []string{}, nil
}

// TestNotificationService outputs digests to terminal and files
type TestNotificationService struct{}

func (t *TestNotificationService) SendDigest(digest *models.Digest) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 SOCIAL MEDIA ANALYTICS DIGEST")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Period: %s (%s to %s)\n", digest.Period,
		digest.Start.Format("2006-01-02"), digest.End.Format("2006-01-02"))
	fmt.Printf("🕒 Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 Total Posts: %d\n", digest.TotalPosts)
	fmt.Printf("👍 Total Reactions: %d\n", digest.TotalReactions)

	fmt.Println("\n💭 Sentiment Breakdown:")
	for sentiment, count := range digest.Sentiment {
		emoji := "😐"
		switch sentiment {
		case "positive":
			emoji = "😊"
		case "negative":
			emoji = "😞"
		}
		fmt.Printf("   %s %-10s %d posts\n", emoji, sentiment+":", count)
	}

	fmt.Println("\n📍 Platforms:")
	for platform, count := range digest.PlatformCounts {
		fmt.Printf("   • %-12s %d posts\n", platform+":", count)
	}

	if len(digest.TopTopics) > 0 {
		fmt.Println("\n🔥 Hot Topics:")
		for i, topic := range digest.TopTopics {
			fmt.Printf("   %d. %s\n", i+1, topic)
		}
	}

	if err := t.saveDigestToFile(digest); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TestNotificationService) saveDigestToFile(digest *models.Digest) error {
	dir := "test_output"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	timestamp := digest.GeneratedAt.Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("analytics_digest_%s.json", timestamp))

	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Digest saved to: %s\n", filename)
	return nil
}

const sampleSnapshot = `platform,author,url,authoredAt,content,positive,negative,compound,engagementRaw,topics,raw,government,media,faith,health,covid,misinfo,partners,trusted,blackafam,latinx,institutional,georgia
facebook,gadph,https://facebook.com/p/1,2021-03-01,Vaccine clinics open this week across the state,0.45,0.05,0.62,118,vaccines;clinics,"{""likeCount"":80,""shareCount"":25,""commentCount"":13}",1,0,0,1,1,0,0,1,0,0,1,1
facebook,community_news,https://facebook.com/p/2,2021-03-02,Long lines reported at testing sites again,0.10,0.40,-0.35,44,testing,"{""likeCount"":20,""shareCount"":14,""commentCount"":10}",0,1,0,0,1,0,0,0,0,0,1,1
twitter,health_watch,https://twitter.com/s/1,2021-03-02,New study shows strong vaccine protection,0.50,0.02,0.71,230,vaccines;research,"{""retweets"":120,""replies"":30,""likes"":70,""quote_count"":10}",0,0,0,1,1,0,1,1,0,0,1,0
twitter,atl_voices,https://twitter.com/s/2,2021-03-04,Not sure who to trust about boosters anymore,0.05,0.30,-0.22,18,boosters;trust,"{""retweets"":5,""replies"":8,""likes"":5,""quote_count"":0}",0,0,0,0,1,0,0,0,1,0,0,1
instagram,faith_org,https://instagram.com/p/1,2021-03-05,Our congregation hosted a vaccination drive today,0.55,0.03,0.68,95,vaccines;community,"{""favoriteCount"":85,""commentCount"":10}",0,0,1,0,1,0,1,1,1,0,1,1
instagram,wellness_ga,https://instagram.com/p/2,2021-03-06,Mask up and stay safe this weekend,0.35,0.10,0.15,60,masks,"{""favoriteCount"":50,""commentCount"":10}",0,0,0,1,1,0,0,0,0,1,0,1
`

func main() {
	fmt.Println("🤖 Social Analytics - Test Digest Generator")
	fmt.Println("===========================================")

	cfg := &config.Config{
		DigestSchedule:    "weekly",
		PositiveThreshold: 0.1,
		NegativeThreshold: -0.1,
		RollingWindowDays: 7,
		TopicLimit:        20,
	}

	storage := &TestStorage{files: map[string][]byte{
		"posts.csv": []byte(sampleSnapshot),
	}}

	store := corpus.NewStore(storage, "posts.csv", "")
	if err := store.Load(); err != nil {
		fmt.Printf("❌ Error loading sample corpus: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n📊 Generating digest from %d sample posts...\n", len(store.Snapshot().Posts))

	notifications := &TestNotificationService{}
	service := report.NewService(cfg, store, filter.NewEngine(), aggregate.NewEngine(aggregate.DefaultConfig()), notifications)

	if err := service.Run(); err != nil {
		fmt.Printf("❌ Error generating digest: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Test digest generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Check the 'test_output' directory for the saved JSON digest")
	fmt.Println("   • Run 'go test ./...' for the full test suite")
	fmt.Println("   • Point CORPUS_PATH at a real snapshot and run 'go run cmd/server/main.go'")
}
