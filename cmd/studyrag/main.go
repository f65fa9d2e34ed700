// Package main is the entry point for the StudyRAG service.
package main

import (
	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/studyrag/internal/studyrag"
)

func main() {
	// .env 缺失是正常情况，生产环境用真实环境变量
	_ = godotenv.Load()

	studyrag.NewApp().Run()
}
