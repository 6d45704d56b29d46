package reconciler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/provider"
	"clementus360/ai-photo-editor/supabase"
	"clementus360/ai-photo-editor/types"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// Signal is a normalized status update for one task, regardless of
// whether it arrived by webhook push or poll pull. Both channels funnel
// through Apply so the task record converges the same way.
type Signal struct {
	ProviderJobID string
	Status        string
	Output        []string
	Error         string
}

// Outcome reports what Apply did with a signal.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeIgnored   Outcome = "ignored"
)

// downloadClient fetches provider output before it is re-homed into
// owned storage.
var downloadClient = &http.Client{Timeout: 30 * time.Second}

// NormalizeWebhook converts a raw provider callback into a Signal.
func NormalizeWebhook(payload types.ReplicateWebhookPayload) Signal {
	return Signal{
		ProviderJobID: payload.ID,
		Status:        payload.Status,
		Output:        payload.Output,
		Error:         payload.Error,
	}
}

// NormalizePrediction converts a polled prediction into a Signal.
func NormalizePrediction(prediction provider.Prediction) Signal {
	return Signal{
		ProviderJobID: prediction.ID,
		Status:        prediction.Status,
		Output:        prediction.Output,
		Error:         prediction.Error,
	}
}

// Apply drives the task state machine with one signal. Terminal states
// stick: a task already completed or failed ignores everything,
// including a late contradictory signal, and never repeats the asset
// persistence side effect. The storage-layer updates are conditional on
// the task still running, which covers the webhook-vs-poll race without
// locks.
func Apply(client *supa.Client, task types.Task, sig Signal) (Outcome, error) {
	if task.Status.Terminal() {
		config.Logger.Infof("task %s already %s, discarding %q signal", task.ID, task.Status, sig.Status)
		return OutcomeIgnored, nil
	}

	switch sig.Status {
	case provider.StatusSucceeded:
		if len(sig.Output) == 0 {
			return failTask(client, task.ID, "provider reported success without output")
		}

		ownedURL, err := persistOutput(client, sig.Output[0])
		if err != nil {
			config.Logger.Errorf("failed to persist output for task %s: %v", task.ID, err)
			// A success we cannot persist must not be reported as one.
			return failTask(client, task.ID, fmt.Sprintf("image processing failed: %v", err))
		}

		updated, err := supabase.CompleteTaskIfRunning(client, task.ID, ownedURL)
		if err != nil {
			return OutcomeIgnored, err
		}
		if !updated {
			config.Logger.Infof("task %s reached a terminal state concurrently, discarding duplicate completion", task.ID)
			return OutcomeIgnored, nil
		}
		return OutcomeCompleted, nil

	case provider.StatusFailed, provider.StatusCanceled:
		message := sig.Error
		if message == "" {
			message = "AI processing " + sig.Status
		}
		return failTask(client, task.ID, message)

	default:
		// starting / processing: a refresh, not a transition.
		if err := supabase.RefreshTaskProcessing(client, task.ID); err != nil {
			return OutcomeIgnored, err
		}
		return OutcomeRefreshed, nil
	}
}

func failTask(client *supa.Client, taskID, message string) (Outcome, error) {
	updated, err := supabase.FailTaskIfRunning(client, taskID, message)
	if err != nil {
		return OutcomeIgnored, err
	}
	if !updated {
		config.Logger.Infof("task %s reached a terminal state concurrently, discarding duplicate failure", taskID)
		return OutcomeIgnored, nil
	}
	return OutcomeFailed, nil
}

// persistOutput downloads a generated image from the provider's URL and
// re-uploads it to owned storage, returning the public URL that will be
// recorded on the task. The provider's URL is never stored: it expires.
func persistOutput(client *supa.Client, imageURL string) (string, error) {
	resp, err := downloadClient.Get(imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to download image: %s", resp.Status)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %v", err)
	}

	timestamp := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339))
	filename := fmt.Sprintf("ai-generated-%s.png", timestamp)

	contentType := "image/png"
	bucket := config.ImagesBucket()
	_, err = client.Storage.UploadFile(bucket, filename, bytes.NewReader(imageData), storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to storage: %v", err)
	}

	publicURL := client.Storage.GetPublicUrl(bucket, filename)
	return publicURL.SignedURL, nil
}
