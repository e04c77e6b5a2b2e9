package s3

import miniogo "github.com/minio/minio-go/v7"

// ErrorForTest builds a minio error response with the given code and status.
func ErrorForTest(code string, status int) error {
	return miniogo.ErrorResponse{Code: code, StatusCode: status}
}
