package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowUpReminder = "followups.reminder"

type FollowUpReminderPayload struct {
	NotificationID string `json:"notificationId"`
	FollowUpID     string `json:"followUpId"`
	OrganizationID string `json:"organizationId"`
	Channel        string `json:"channel"`
	Recipient      string `json:"recipient"`
}

func NewFollowUpReminderTask(payload FollowUpReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpReminder, data), nil
}

func ParseFollowUpReminderPayload(task *asynq.Task) (FollowUpReminderPayload, error) {
	var payload FollowUpReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpReminderPayload{}, err
	}
	return payload, nil
}
