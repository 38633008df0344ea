package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/degree-planner-api/internal/degree"
	"github.com/noah-isme/degree-planner-api/internal/models"
)

type result struct {
	Path  string
	Order []string
	Err   error
}

func main() {
	var (
		dir   string
		quiet bool
	)
	flag.StringVar(&dir, "dir", "", "Directory of catalog JSON files to lint")
	flag.BoolVar(&quiet, "quiet", false, "Only print failures")
	flag.Parse()

	paths := flag.Args()
	if dir != "" {
		matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			log.Fatalf("failed to list %s: %v", dir, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		log.Fatal("usage: catalog_lint [-dir catalogs/] [file.json ...]")
	}
	sort.Strings(paths)

	validate := validator.New()
	failures := 0
	for _, path := range paths {
		res := lintFile(validate, path)
		if res.Err != nil {
			failures++
			fmt.Printf("FAIL %s: %v\n", res.Path, res.Err)
			continue
		}
		if !quiet {
			fmt.Printf("ok   %s: %s\n", res.Path, strings.Join(res.Order, " -> "))
		}
	}

	if failures > 0 {
		fmt.Printf("%d of %d catalogs failed\n", failures, len(paths))
		os.Exit(1)
	}
}

func lintFile(validate *validator.Validate, path string) result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return result{Path: path, Err: err}
	}
	order, err := lintCatalog(validate, raw)
	return result{Path: path, Order: order, Err: err}
}

// lintCatalog decodes a catalog and returns its bank traversal order.
func lintCatalog(validate *validator.Validate, raw []byte) ([]string, error) {
	var catalog models.Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(catalog); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	var problems []error
	for _, bank := range catalog.CourseBanks {
		if err := bank.Rule.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("bank %s: %w", bank.Name, err))
		}
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return degree.FindTraversalOrder(&catalog)
}
