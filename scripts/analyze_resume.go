package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/resume-analyzer/internal/config"
	"alfredoptarigan/resume-analyzer/internal/logger"
	"alfredoptarigan/resume-analyzer/internal/services"
)

func main() {
	resumePath := flag.String("resume", "", "path to the resume (.pdf, .docx or .txt)")
	jdPath := flag.String("jd", "", "path to a plain-text job description")
	jdText := flag.String("jd-text", "", "job description text, used when -jd is not set")
	flag.Parse()

	log.Println("🚀 Starting resume analysis...")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	criteria := *jdText
	if *jdPath != "" {
		data, err := os.ReadFile(*jdPath)
		if err != nil {
			log.Fatalf("❌ Failed to read job description: %v", err)
		}
		criteria = string(data)
	}

	var doc *services.Document
	if *resumePath != "" {
		data, err := os.ReadFile(*resumePath)
		if err != nil {
			log.Fatalf("❌ Failed to read resume: %v", err)
		}
		doc = &services.Document{
			Filename:    filepath.Base(*resumePath),
			ContentType: mime.TypeByExtension(filepath.Ext(*resumePath)),
			Data:        data,
		}
	}

	// Pipeline logs go to stderr at warn level so they do not interleave
	// with the report.
	zapLogger := logger.New("warn", cfg.Log.Format)
	defer func() { _ = zapLogger.Sync() }()

	client, err := services.NewGenerationClient(cfg.Generation, zapLogger)
	if err != nil {
		log.Fatalf("❌ Failed to initialize %s client: %v", cfg.Generation.Provider, err)
	}

	orchestrator := services.NewOrchestrator(
		services.NewTextExtractor(),
		client,
		services.DefaultPromptRegistry(),
		services.NewPipelineOptions(cfg.Pipeline, cfg.Retry),
		zapLogger,
	)

	ctx := context.Background()
	if cfg.Pipeline.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
		defer cancel()
	}

	result, _ := orchestrator.Run(ctx, services.RunInput{CriteriaText: criteria, Document: doc}, func(event services.ProgressEvent) {
		if event.Summary != "" {
			return
		}
		log.Printf("   🔄 %s", event.Message)
	})

	if result.ProfileSummary != "" {
		printSection("Resume Summary", string(result.ProfileSummary))
	}
	if result.CriteriaSummary != "" {
		printSection("Job Description Summary", string(result.CriteriaSummary))
	}

	if result.Err != nil {
		log.Printf("❌ Analysis failed: %s", result.Err.UserMessage())
		os.Exit(1)
	}

	printSection("Analysis Report", string(result.Report))

	check := services.CheckReport(result.Report)
	log.Println(strings.Repeat("=", 60))
	log.Printf("📊 Report check:")
	log.Printf("   ✅ Sections found: %d/%d", len(check.Found), len(services.ReportSections))
	for _, section := range check.Missing {
		log.Printf("   ⚠️  Missing section: %s", section)
	}
	if check.MatchPercentage != nil {
		log.Printf("   🎯 Match percentage: %.0f%%", *check.MatchPercentage)
	}
	log.Println(strings.Repeat("=", 60))

	log.Println("✅ Analysis complete!")
}

func printSection(title, body string) {
	fmt.Printf("\n## %s\n\n%s\n", title, body)
}
