// Package domain holds the core types and component contracts of the
// sentiment analysis pipeline. It has no dependencies on transport,
// storage, or model implementations.
package domain
