// Package models contains GORM persistence models and their conversion to
// and from domain entities. Domain packages stay free of ORM tags.
package models
