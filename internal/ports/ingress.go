package ports

// Ingress is a trigger surface that receives inbound emails and hands
// them to the pipeline
type Ingress interface {
	// Start begins accepting triggers
	Start() error

	// Stop shuts the surface down
	Stop() error
}
