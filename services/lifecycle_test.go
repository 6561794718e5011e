package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BalwinderCa/dastiyor-sub001/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskEvent{},
		&models.Response{},
		&models.Review{},
		&models.Message{},
		&models.Notification{},
		&models.Subscription{},
		&models.Payment{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	u := models.User{
		Name:     "Test " + role,
		Email:    fmt.Sprintf("%s-%d@example.com", strings.ToLower(role), time.Now().UnixNano()),
		Phone:    fmt.Sprintf("+9929%09d", time.Now().UnixNano()%1e9),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedOpenTask(t *testing.T, db *gorm.DB, engine *Lifecycle, ownerID uint) *models.Task {
	t.Helper()
	task, err := engine.CreateTask(ownerID, CreateTaskInput{
		Title:       "Починить кран",
		Description: "Течёт кран на кухне",
		Category:    "plumbing",
		BudgetType:  models.BudgetNegotiable,
		City:        "Душанбе",
	})
	require.NoError(t, err)
	return task
}

func seedSubscription(t *testing.T, db *gorm.DB, userID uint, plan string, active bool) {
	t.Helper()
	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)
	if !active {
		end = now.Add(-time.Hour)
	}
	require.NoError(t, db.Create(&models.Subscription{
		UserID:    userID,
		Plan:      plan,
		StartDate: now.Add(-time.Hour),
		EndDate:   end,
		IsActive:  true,
	}).Error)
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uint, typ string) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", userID, typ).Find(&rows).Error)
	return rows
}

func TestCreateTask(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NopNotifier{})
	owner := seedUser(t, db, models.RoleCustomer)

	t.Run("fixed budget requires a positive amount", func(t *testing.T) {
		_, err := engine.CreateTask(owner.ID, CreateTaskInput{
			Title:       "Сборка мебели",
			Description: "Собрать шкаф",
			Category:    "assembly",
			BudgetType:  models.BudgetFixed,
			City:        "Душанбе",
		})
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	t.Run("negotiable budget drops the amount", func(t *testing.T) {
		amount := 500.0
		task, err := engine.CreateTask(owner.ID, CreateTaskInput{
			Title:        "Сборка мебели",
			Description:  "Собрать шкаф",
			Category:     "assembly",
			BudgetType:   models.BudgetNegotiable,
			BudgetAmount: &amount,
			City:         "Душанбе",
		})
		require.NoError(t, err)
		require.Nil(t, task.BudgetAmount)
		require.Equal(t, models.TaskOpen, task.Status)
		require.Nil(t, task.AssignedUserID)
	})

	t.Run("creation writes the first history event", func(t *testing.T) {
		task := seedOpenTask(t, db, engine, owner.ID)
		events, err := engine.TaskHistory(task.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, models.TaskOpen, events[0].Status)
		require.Equal(t, owner.ID, events[0].ActorID)
	})
}

func TestCreateResponse(t *testing.T) {
	db := newTestDB(t)
	notifier := NewDBNotifier(db)
	engine := NewLifecycle(db, notifier)
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)
	task := seedOpenTask(t, db, engine, owner.ID)

	t.Run("own task is off limits", func(t *testing.T) {
		_, err := engine.CreateResponse(owner.ID, task.ID, nil, "Сделаю сам")
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	t.Run("success notifies the owner", func(t *testing.T) {
		price := 150.0
		resp, err := engine.CreateResponse(provider.ID, task.ID, &price, "Готов выполнить")
		require.NoError(t, err)
		require.Equal(t, models.ResponsePending, resp.Status)

		rows := notificationsFor(t, db, owner.ID, models.NotifyNewResponse)
		require.Len(t, rows, 1)
		require.False(t, rows[0].IsRead)
	})

	t.Run("duplicate response conflicts", func(t *testing.T) {
		_, err := engine.CreateResponse(provider.ID, task.ID, nil, "Ещё раз")
		require.Error(t, err)
		require.Equal(t, 409, HTTPStatus(err))
	})

	t.Run("unique index backs the duplicate check", func(t *testing.T) {
		err := db.Create(&models.Response{
			TaskID:  task.ID,
			UserID:  provider.ID,
			Message: "Гонка",
			Status:  models.ResponsePending,
		}).Error
		require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := engine.CreateResponse(provider.ID, 99999, nil, "Куда-то")
		require.Equal(t, 404, HTTPStatus(err))
	})

	t.Run("non-open task rejects new responses", func(t *testing.T) {
		done := seedOpenTask(t, db, engine, owner.ID)
		_, err := engine.CancelTask(owner.ID, done.ID)
		require.NoError(t, err)
		other := seedUser(t, db, models.RoleProvider)
		_, err = engine.CreateResponse(other.ID, done.ID, nil, "Опоздал")
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})
}

func TestResponseDailyQuota(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NopNotifier{})
	owner := seedUser(t, db, models.RoleCustomer)

	tasks := make([]*models.Task, 4)
	for i := range tasks {
		tasks[i] = seedOpenTask(t, db, engine, owner.ID)
	}

	t.Run("free provider gets one response per day", func(t *testing.T) {
		free := seedUser(t, db, models.RoleProvider)
		_, err := engine.CreateResponse(free.ID, tasks[0].ID, nil, "Первый")
		require.NoError(t, err)
		_, err = engine.CreateResponse(free.ID, tasks[1].ID, nil, "Второй")
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	t.Run("basic plan raises the quota to three", func(t *testing.T) {
		basic := seedUser(t, db, models.RoleProvider)
		seedSubscription(t, db, basic.ID, models.PlanBasic, true)
		for i := 0; i < 3; i++ {
			_, err := engine.CreateResponse(basic.ID, tasks[i].ID, nil, "Отклик")
			require.NoError(t, err)
		}
		_, err := engine.CreateResponse(basic.ID, tasks[3].ID, nil, "Лишний")
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	t.Run("expired plan falls back to the free quota", func(t *testing.T) {
		lapsed := seedUser(t, db, models.RoleProvider)
		seedSubscription(t, db, lapsed.ID, models.PlanPremium, false)
		_, err := engine.CreateResponse(lapsed.ID, tasks[0].ID, nil, "Первый")
		require.NoError(t, err)
		_, err = engine.CreateResponse(lapsed.ID, tasks[1].ID, nil, "Второй")
		require.Error(t, err)
	})

	t.Run("premium plan is unlimited", func(t *testing.T) {
		premium := seedUser(t, db, models.RoleProvider)
		seedSubscription(t, db, premium.ID, models.PlanPremium, true)
		for i := 0; i < 4; i++ {
			_, err := engine.CreateResponse(premium.ID, tasks[i].ID, nil, "Отклик")
			require.NoError(t, err)
		}
	})
}

func TestAcceptResponse(t *testing.T) {
	db := newTestDB(t)
	notifier := NewDBNotifier(db)
	engine := NewLifecycle(db, notifier)
	owner := seedUser(t, db, models.RoleCustomer)
	chosen := seedUser(t, db, models.RoleProvider)
	loserA := seedUser(t, db, models.RoleProvider)
	loserB := seedUser(t, db, models.RoleProvider)
	task := seedOpenTask(t, db, engine, owner.ID)

	for _, p := range []*models.User{chosen, loserA, loserB} {
		_, err := engine.CreateResponse(p.ID, task.ID, nil, "Готов")
		require.NoError(t, err)
	}

	t.Run("only the owner may accept", func(t *testing.T) {
		_, err := engine.AcceptResponse(loserA.ID, task.ID, chosen.ID)
		require.Error(t, err)
		require.Equal(t, 403, HTTPStatus(err))
	})

	t.Run("provider without a pending response cannot be assigned", func(t *testing.T) {
		stranger := seedUser(t, db, models.RoleProvider)
		_, err := engine.AcceptResponse(owner.ID, task.ID, stranger.ID)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))

		var fresh models.Task
		require.NoError(t, db.First(&fresh, task.ID).Error)
		require.Equal(t, models.TaskOpen, fresh.Status)
		require.Nil(t, fresh.AssignedUserID)
	})

	t.Run("accept assigns and retires the siblings", func(t *testing.T) {
		updated, err := engine.AcceptResponse(owner.ID, task.ID, chosen.ID)
		require.NoError(t, err)
		require.Equal(t, models.TaskInProgress, updated.Status)
		require.NotNil(t, updated.AssignedUserID)
		require.Equal(t, chosen.ID, *updated.AssignedUserID)

		var resp models.Response
		require.NoError(t, db.Where("task_id = ? AND user_id = ?", task.ID, chosen.ID).First(&resp).Error)
		require.Equal(t, models.ResponseAccepted, resp.Status)

		var retired []models.Response
		require.NoError(t, db.Where("task_id = ? AND user_id IN ?", task.ID,
			[]uint{loserA.ID, loserB.ID}).Find(&retired).Error)
		require.Len(t, retired, 2)
		for _, r := range retired {
			require.Equal(t, models.ResponseNotSelected, r.Status)
		}

		require.Len(t, notificationsFor(t, db, chosen.ID, models.NotifyOfferAccepted), 1)
		require.Len(t, notificationsFor(t, db, loserA.ID, models.NotifyResponseNotSelected), 1)
		require.Len(t, notificationsFor(t, db, loserB.ID, models.NotifyResponseNotSelected), 1)

		events, err := engine.TaskHistory(task.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, models.TaskInProgress, events[1].Status)
	})

	t.Run("second accept fails and leaves the assignment alone", func(t *testing.T) {
		_, err := engine.AcceptResponse(owner.ID, task.ID, loserA.ID)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))

		var fresh models.Task
		require.NoError(t, db.First(&fresh, task.ID).Error)
		require.Equal(t, models.TaskInProgress, fresh.Status)
		require.Equal(t, chosen.ID, *fresh.AssignedUserID)
	})
}

func TestRejectResponse(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NewDBNotifier(db))
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)
	task := seedOpenTask(t, db, engine, owner.ID)
	resp, err := engine.CreateResponse(provider.ID, task.ID, nil, "Готов")
	require.NoError(t, err)

	t.Run("only the owner may reject", func(t *testing.T) {
		_, err := engine.RejectResponse(provider.ID, resp.ID)
		require.Error(t, err)
		require.Equal(t, 403, HTTPStatus(err))
	})

	t.Run("reject flips to REJECTED and notifies", func(t *testing.T) {
		rejected, err := engine.RejectResponse(owner.ID, resp.ID)
		require.NoError(t, err)
		require.Equal(t, models.ResponseRejected, rejected.Status)
		require.Len(t, notificationsFor(t, db, provider.ID, models.NotifyOfferRejected), 1)
	})

	t.Run("double reject fails", func(t *testing.T) {
		_, err := engine.RejectResponse(owner.ID, resp.ID)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))

		var fresh models.Response
		require.NoError(t, db.First(&fresh, resp.ID).Error)
		require.Equal(t, models.ResponseRejected, fresh.Status)
	})

	t.Run("missing response", func(t *testing.T) {
		_, err := engine.RejectResponse(owner.ID, 99999)
		require.Equal(t, 404, HTTPStatus(err))
	})
}

func TestCompleteTask(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NewDBNotifier(db))
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)
	task := seedOpenTask(t, db, engine, owner.ID)

	t.Run("open task cannot be completed", func(t *testing.T) {
		_, err := engine.CompleteTask(owner.ID, task.ID)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	_, err := engine.CreateResponse(provider.ID, task.ID, nil, "Готов")
	require.NoError(t, err)
	_, err = engine.AcceptResponse(owner.ID, task.ID, provider.ID)
	require.NoError(t, err)

	t.Run("only the owner may complete", func(t *testing.T) {
		_, err := engine.CompleteTask(provider.ID, task.ID)
		require.Error(t, err)
		require.Equal(t, 403, HTTPStatus(err))
	})

	t.Run("in-progress completes and notifies the provider", func(t *testing.T) {
		done, err := engine.CompleteTask(owner.ID, task.ID)
		require.NoError(t, err)
		require.Equal(t, models.TaskCompleted, done.Status)
		require.Equal(t, provider.ID, *done.AssignedUserID)
		require.Len(t, notificationsFor(t, db, provider.ID, models.NotifyTaskCompleted), 1)

		events, err := engine.TaskHistory(task.ID)
		require.NoError(t, err)
		require.Len(t, events, 3)
		require.Equal(t, models.TaskCompleted, events[2].Status)
	})

	t.Run("completion is terminal", func(t *testing.T) {
		_, err := engine.CompleteTask(owner.ID, task.ID)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})
}

func TestCancelTask(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NewDBNotifier(db))
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)

	t.Run("cancel an open task notifies pending responders", func(t *testing.T) {
		task := seedOpenTask(t, db, engine, owner.ID)
		_, err := engine.CreateResponse(provider.ID, task.ID, nil, "Готов")
		require.NoError(t, err)

		cancelled, err := engine.CancelTask(owner.ID, task.ID)
		require.NoError(t, err)
		require.Equal(t, models.TaskCancelled, cancelled.Status)
		require.Nil(t, cancelled.AssignedUserID)
		require.Len(t, notificationsFor(t, db, provider.ID, models.NotifyTaskCancelled), 1)
	})

	t.Run("in-progress task cannot be cancelled", func(t *testing.T) {
		task := seedOpenTask(t, db, engine, owner.ID)
		worker := seedUser(t, db, models.RoleProvider)
		seedSubscription(t, db, worker.ID, models.PlanPremium, true)
		_, err := engine.CreateResponse(worker.ID, task.ID, nil, "Готов")
		require.NoError(t, err)
		_, err = engine.AcceptResponse(owner.ID, task.ID, worker.ID)
		require.NoError(t, err)

		_, err = engine.CancelTask(owner.ID, task.ID)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))

		var fresh models.Task
		require.NoError(t, db.First(&fresh, task.ID).Error)
		require.Equal(t, models.TaskInProgress, fresh.Status)
	})

	t.Run("only the owner may cancel", func(t *testing.T) {
		task := seedOpenTask(t, db, engine, owner.ID)
		_, err := engine.CancelTask(provider.ID, task.ID)
		require.Error(t, err)
		require.Equal(t, 403, HTTPStatus(err))
	})

	t.Run("force cancel skips the ownership check", func(t *testing.T) {
		task := seedOpenTask(t, db, engine, owner.ID)
		admin := seedUser(t, db, models.RoleAdmin)
		cancelled, err := engine.ForceCancelTask(admin.ID, task.ID)
		require.NoError(t, err)
		require.Equal(t, models.TaskCancelled, cancelled.Status)
	})
}

func TestSubmitReview(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NewDBNotifier(db))
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)

	completed := seedOpenTask(t, db, engine, owner.ID)
	_, err := engine.CreateResponse(provider.ID, completed.ID, nil, "Готов")
	require.NoError(t, err)
	_, err = engine.AcceptResponse(owner.ID, completed.ID, provider.ID)
	require.NoError(t, err)
	_, err = engine.CompleteTask(owner.ID, completed.ID)
	require.NoError(t, err)

	t.Run("rating outside 1..5", func(t *testing.T) {
		_, err := engine.SubmitReview(owner.ID, completed.ID, 0, nil)
		require.Error(t, err)
		_, err = engine.SubmitReview(owner.ID, completed.ID, 6, nil)
		require.Error(t, err)
	})

	t.Run("only the owner may review", func(t *testing.T) {
		_, err := engine.SubmitReview(provider.ID, completed.ID, 5, nil)
		require.Error(t, err)
		require.Equal(t, 403, HTTPStatus(err))
	})

	t.Run("open task cannot be reviewed", func(t *testing.T) {
		open := seedOpenTask(t, db, engine, owner.ID)
		_, err := engine.SubmitReview(owner.ID, open.ID, 5, nil)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	t.Run("review targets the assigned provider and notifies", func(t *testing.T) {
		comment := "Отличная работа"
		review, err := engine.SubmitReview(owner.ID, completed.ID, 5, &comment)
		require.NoError(t, err)
		require.Equal(t, owner.ID, review.ReviewerID)
		require.Equal(t, provider.ID, review.ReviewedID)
		require.Len(t, notificationsFor(t, db, provider.ID, models.NotifyNewReview), 1)
	})

	t.Run("one review per task", func(t *testing.T) {
		_, err := engine.SubmitReview(owner.ID, completed.ID, 4, nil)
		require.Error(t, err)
		require.Equal(t, 400, HTTPStatus(err))
	})

	t.Run("unique index backs the duplicate check", func(t *testing.T) {
		// a racing reviewer that passes the count check still loses on the
		// index, and that error maps to the same 400
		err := db.Create(&models.Review{
			TaskID:     completed.ID,
			ReviewerID: owner.ID,
			ReviewedID: provider.ID,
			Rating:     3,
		}).Error
		require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})
}

func TestTaskHistory(t *testing.T) {
	db := newTestDB(t)
	engine := NewLifecycle(db, NopNotifier{})
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)

	task := seedOpenTask(t, db, engine, owner.ID)
	_, err := engine.CreateResponse(provider.ID, task.ID, nil, "Готов")
	require.NoError(t, err)
	_, err = engine.AcceptResponse(owner.ID, task.ID, provider.ID)
	require.NoError(t, err)
	_, err = engine.CompleteTask(owner.ID, task.ID)
	require.NoError(t, err)

	events, err := engine.TaskHistory(task.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, []string{models.TaskOpen, models.TaskInProgress, models.TaskCompleted},
		[]string{events[0].Status, events[1].Status, events[2].Status})

	_, err = engine.TaskHistory(99999)
	require.Equal(t, 404, HTTPStatus(err))
}
