package database

import (
	"english_bot_backend/internal/config"
	"english_bot_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.UserSession{},
		&model.Lesson{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 课程表为空时写入入门课程（词汇测验的固定课程序列，id 从 1 连续递增）
	var count int64
	db.Model(&model.Lesson{}).Count(&count)
	if count == 0 {
		defaultLessons := []model.Lesson{
			{
				ID:       1,
				Tema:     "vocabulario_saudacoes",
				Topico:   "Lição 1: Saudações",
				Pergunta: "Qual é a tradução correta para a frase: 'How are you?'",
				OpcaoA:   "Quem é você?",
				OpcaoB:   "Onde você está?",
				OpcaoC:   "Como você está?",
				OpcaoD:   "Qual é o seu nome?",
				Correta:  "C",
			},
			{
				ID:       2,
				Tema:     "gramatica_ser_estar",
				Topico:   "Lição 2: Verb To Be (Básico)",
				Pergunta: "Complete a frase: 'She ____ a student.'",
				OpcaoA:   "are",
				OpcaoB:   "is",
				OpcaoC:   "am",
				OpcaoD:   "be",
				Correta:  "B",
			},
			{
				ID:       3,
				Tema:     "vocabulario_comum",
				Topico:   "Lição 3: Cores",
				Pergunta: "Qual palavra significa 'vermelho' em inglês?",
				OpcaoA:   "Yellow",
				OpcaoB:   "Blue",
				OpcaoC:   "Green",
				OpcaoD:   "Red",
				Correta:  "D",
			},
		}
		for _, lesson := range defaultLessons {
			db.Create(&lesson)
		}
		log.Println("Seeded introductory lessons")
	}

	return db, nil
}
