// Package events encodes and decodes S3 bucket notifications, in the shape
// MinIO sends them to its AMQP, SQS and Kafka targets.
package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Event names accepted as object creation.
const (
	ObjectCreatedPut  = "s3:ObjectCreated:Put"
	ObjectCreatedPost = "s3:ObjectCreated:Post"
)

// Notification is one bucket event message.
type Notification struct {
	EventName string   `json:"EventName,omitempty"`
	Key       string   `json:"Key,omitempty"`
	Records   []Record `json:"Records"`
}

type Record struct {
	EventVersion string    `json:"eventVersion"`
	EventSource  string    `json:"eventSource"`
	EventTime    time.Time `json:"eventTime"`
	EventName    string    `json:"eventName"`
	S3           S3Entity  `json:"s3"`
}

type S3Entity struct {
	Bucket Bucket `json:"bucket"`
	Object Object `json:"object"`
}

type Bucket struct {
	Name string `json:"name"`
}

type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// ObjectRef names an object an event refers to.
type ObjectRef struct {
	EventName string
	Bucket    string
	Key       string
}

// NewObjectCreated builds the notification for a freshly written object.
func NewObjectCreated(bucket, key string, size int64, at time.Time) Notification {
	return Notification{
		EventName: ObjectCreatedPut,
		Key:       bucket + "/" + key,
		Records: []Record{{
			EventVersion: "2.0",
			EventSource:  "eshop:s3",
			EventTime:    at.UTC(),
			EventName:    ObjectCreatedPut,
			S3: S3Entity{
				Bucket: Bucket{Name: bucket},
				Object: Object{Key: url.QueryEscape(key), Size: size, ContentType: "application/json"},
			},
		}},
	}
}

// IsObjectCreated reports whether name is a Put or Post creation event, with
// or without the "s3:" prefix.
func IsObjectCreated(name string) bool {
	switch strings.TrimPrefix(name, "s3:") {
	case "ObjectCreated:Put", "ObjectCreated:Post":
		return true
	}
	return false
}

// Parse decodes a notification message and returns the objects created by
// it. Records of other event types are skipped. Keys are URL-unescaped.
func Parse(body []byte) ([]ObjectRef, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("failed to decode bucket notification: %w", err)
	}

	refs := make([]ObjectRef, 0, len(n.Records))
	for _, r := range n.Records {
		if !IsObjectCreated(r.EventName) {
			continue
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			key = r.S3.Object.Key
		}
		refs = append(refs, ObjectRef{
			EventName: r.EventName,
			Bucket:    r.S3.Bucket.Name,
			Key:       key,
		})
	}
	return refs, nil
}
