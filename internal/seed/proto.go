package seed

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ProgressMessage encodes a Job's progress as a protobuf Struct, for
// callers that want a typed protobuf payload. The /progress endpoint
// does not use it; it writes the Job as JSON.
func ProgressMessage(job *Job) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":          job.ID,
		"dataset":     job.Dataset,
		"status":      string(job.Status),
		"progress":    float64(job.Progress),
		"rowsWritten": float64(job.RowsWritten),
	}
	if job.Error != "" {
		fields["error"] = job.Error
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding seed progress as protobuf struct: %w", err)
	}
	return msg, nil
}
