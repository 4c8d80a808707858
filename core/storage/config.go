package storage

// Config holds connection settings for an s3 compatible remote.
type Config struct {
	// Endpoint is the host (and optional port) of the storage service.
	Endpoint string
	// AccessKey is the access key ID for authentication.
	AccessKey string
	// SecretKey is the secret access key for authentication.
	SecretKey string
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool
	// Region is the location of the bucket (e.g., us-east-1).
	Region string
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int
}
