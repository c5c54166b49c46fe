package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangKO Language = "ko"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting         string
	DryRunMode       string
	ConfigLoadFailed string
	DBInitFailed     string
	StoreSelected    string
	LayoutLoaded     string
	LayoutReloaded   string
	ServerListening  string
	APIServerError   string
	MailPollerOn     string
	ConsoleOn        string
	ShuttingDown     string

	// Console
	Prompt         string
	InvalidSignal  string
	Opened         string
	Switched       string
	Closed         string
	NothingToClose string
	AlreadyOpen    string
	SignalFailed   string
	QueueBusy      string
}

var (
	mu          sync.RWMutex
	currentLang Language = LangEN
	messages    *Messages
)

var messagesEN = Messages{
	Starting:         "Starting trade clicker...",
	DryRunMode:       "Running in DRY-RUN mode (no real mouse or keyboard input)",
	ConfigLoadFailed: "Failed to load config: %v",
	DBInitFailed:     "Failed to init database: %v",
	StoreSelected:    "Position store: %s",
	LayoutLoaded:     "Screen layout loaded from %s",
	LayoutReloaded:   "Screen layout reloaded",
	ServerListening:  "Signal server listening on :%s",
	APIServerError:   "API server error: %v",
	MailPollerOn:     "Polling %s every %v for signal mails",
	ConsoleOn:        "Console signal input enabled",
	ShuttingDown:     "Shutting down...",

	Prompt:         "Enter a signal (buy/sell/clear): ",
	InvalidSignal:  "Invalid signal. Please try again.",
	Opened:         "Position opened (%s)",
	Switched:       "Position switched %s -> %s",
	Closed:         "Position closed",
	NothingToClose: "No position, nothing to close",
	AlreadyOpen:    "Already in a %s position",
	SignalFailed:   "Signal failed: %v (position is now %s)",
	QueueBusy:      "Busy, signal dropped. Try again.",
}

var messagesKO = Messages{
	Starting:         "트레이드 클리커 시작 중...",
	DryRunMode:       "DRY-RUN 모드로 실행 중 (실제 마우스/키보드 입력 없음)",
	ConfigLoadFailed: "설정 로드 실패: %v",
	DBInitFailed:     "데이터베이스 초기화 실패: %v",
	StoreSelected:    "포지션 저장소: %s",
	LayoutLoaded:     "화면 레이아웃 로드: %s",
	LayoutReloaded:   "화면 레이아웃 다시 로드됨",
	ServerListening:  "신호 서버 대기 중 :%s",
	APIServerError:   "API 서버 오류: %v",
	MailPollerOn:     "%s 메일함을 %v 간격으로 확인합니다",
	ConsoleOn:        "콘솔 신호 입력 활성화",
	ShuttingDown:     "종료 중...",

	Prompt:         "신호를 입력하세요 (buy/sell/clear): ",
	InvalidSignal:  "잘못된 신호입니다. 다시 입력해주세요.",
	Opened:         "포지션 열림 (%s)",
	Switched:       "포지션 스위칭 완료 %s -> %s",
	Closed:         "포지션 청산 완료",
	NothingToClose: "포지션 없음 -> 청산할 포지션 없음",
	AlreadyOpen:    "이미 %s 포지션입니다",
	SignalFailed:   "신호 처리 실패: %v (현재 포지션 %s)",
	QueueBusy:      "처리 중입니다. 다시 시도해주세요.",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	switch lang {
	case LangKO:
		currentLang = LangKO
		messages = &messagesKO
	default:
		currentLang = LangEN
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
