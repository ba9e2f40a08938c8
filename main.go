package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/athapong/codegraph/pkg/graph/pipeline"
	"github.com/athapong/codegraph/pkg/graph/storage"
	"github.com/athapong/codegraph/pkg/graph/visualizer"
)

var (
	rootDir         = flag.String("root", "", "Workspace root directory to scan")
	envFile         = flag.String("env", ".env", "Path to environment file")
	outputFile      = flag.String("output", "codegraph.json", "Output file path for the analysis document")
	workers         = flag.Int("workers", 4, "Number of concurrent project analyzers")
	loadNeo4j       = flag.Bool("neo4j", false, "Load the resolved graph into Neo4j")
	clean           = flag.Bool("clean", false, "Clear previously loaded graph data before loading")
	visualize       = flag.Bool("visualize", false, "Generate a visualization of the code graph")
	visualizeOutput = flag.String("viz-output", "codegraph.html", "Output file for the visualization")
	logLevel        = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: Error loading env file %s: %v\n", *envFile, err)
	}

	// Configure logging
	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *rootDir == "" {
		logger.Fatal("Workspace root must be specified")
	}

	ctx := context.Background()

	registry, report, err := pipeline.New(*rootDir, logger).WithWorkers(*workers).Run(ctx)
	if err != nil {
		logger.Fatalf("Scan failed: %v", err)
	}

	doc := storage.NewAnalysisDocument(registry, report)

	graphStore := storage.NewJSONGraphStore(*outputFile)
	if err := graphStore.StoreGraph(ctx, doc); err != nil {
		logger.Fatalf("Failed to store analysis document: %v", err)
	}
	logger.Infof("Analysis document written to %s", *outputFile)

	if *visualize {
		viz := visualizer.NewD3Visualizer(*visualizeOutput)
		if err := viz.Visualize(doc); err != nil {
			logger.Fatalf("Failed to generate visualization: %v", err)
		}
		logger.Infof("Visualization written to %s", *visualizeOutput)
	}

	if *loadNeo4j {
		loader, err := storage.NewNeo4jLoader(
			envOr("NEO4J_URI", "bolt://localhost:7687"),
			envOr("NEO4J_USERNAME", "neo4j"),
			envOr("NEO4J_PASSWORD", "password"),
			logger,
		)
		if err != nil {
			logger.Fatalf("Failed to connect to Neo4j: %v", err)
		}
		defer loader.Close()

		if *clean {
			if err := loader.Clean(); err != nil {
				logger.Fatalf("Failed to clear graph: %v", err)
			}
		}
		if err := loader.CreateIndexes(); err != nil {
			logger.Fatalf("Failed to create indexes: %v", err)
		}
		if err := loader.Load(ctx, registry, report); err != nil {
			logger.Fatalf("Failed to load graph: %v", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"projects":         report.Projects,
		"failed_projects":  report.FailedProjects,
		"files_parsed":     report.FilesParsed,
		"entities":         report.Entities,
		"resolved":         report.ResolvedTargets,
		"unresolved":       report.UnresolvedTargets,
		"ambiguous":        report.AmbiguousTargets,
		"nodes_written":    report.NodesWritten,
		"ownership_edges":  report.OwnershipEdges,
		"dependency_edges": report.DependencyEdges,
		"edges_skipped":    report.SkippedTotal(),
		"warnings":         report.Warnings,
	}).Info("Run complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
