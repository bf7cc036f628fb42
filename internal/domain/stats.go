package domain

import "time"

// NoActionLabel возвращается в MostCommonAction, если журнал пуст.
const NoActionLabel = "N/A"

// Statistics — сводка по активному (не удаленному) журналу.
type Statistics struct {
	TotalLogs        int64             `json:"totalLogs"`
	LogsToday        int64             `json:"logsToday"`
	LogsLast24h      int64             `json:"logsLast24h"`
	LogsLast7Days    int64             `json:"logsLast7Days"`
	MostCommonAction string            `json:"mostCommonAction"`
	ActionStats      []ActionCount     `json:"actionStats"`
	ModuleStats      []ModuleCount     `json:"moduleStats"`
	TopUsers         []UserActivity    `json:"topUsers"`
	RecentActivity   []ActivitySummary `json:"recentActivity"`
	ActiveUsers      int64             `json:"activeUsers"`
}

type ActionCount struct {
	Action Action `json:"action"`
	Count  int64  `json:"count"`
}

type ModuleCount struct {
	Module Module `json:"module"`
	Count  int64  `json:"count"`
}

type UserActivity struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Count    int64  `json:"count"`
}

type ActivitySummary struct {
	ID          string    `json:"id"`
	Action      Action    `json:"action"`
	Module      Module    `json:"module"`
	UserName    string    `json:"userName"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// StatsWindow — границы окон, по которым считается статистика.
// Вычисляется один раз на запрос, чтобы все счетчики смотрели на одно "сейчас".
type StatsWindow struct {
	Now        time.Time
	StartOfDay time.Time
	Last24h    time.Time
	Last7Days  time.Time
	Last30Days time.Time
}

// NewStatsWindow: начало дня берется в локальной зоне now.
func NewStatsWindow(now time.Time) StatsWindow {
	y, m, d := now.Date()
	return StatsWindow{
		Now:        now,
		StartOfDay: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		Last24h:    now.Add(-24 * time.Hour),
		Last7Days:  now.AddDate(0, 0, -7),
		Last30Days: now.AddDate(0, 0, -30),
	}
}

// Finalize выводит самое частое действие и заменяет nil-срезы пустыми.
// ActionStats должен быть отсортирован по убыванию счетчика.
func (s *Statistics) Finalize() {
	if s.ActionStats == nil {
		s.ActionStats = []ActionCount{}
	}
	if s.ModuleStats == nil {
		s.ModuleStats = []ModuleCount{}
	}
	if s.TopUsers == nil {
		s.TopUsers = []UserActivity{}
	}
	if s.RecentActivity == nil {
		s.RecentActivity = []ActivitySummary{}
	}

	s.MostCommonAction = NoActionLabel
	if len(s.ActionStats) > 0 {
		s.MostCommonAction = string(s.ActionStats[0].Action)
	}
}
