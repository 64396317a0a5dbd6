package main

import (
	"english_bot_backend/internal/app"
	"english_bot_backend/internal/config"
	"english_bot_backend/pkg/logger"
	"flag"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移和课程种子数据，完成后退出")
	flag.Parse()

	// 先加载 .env，viper 的 BindEnv 才能读到其中的密钥
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
