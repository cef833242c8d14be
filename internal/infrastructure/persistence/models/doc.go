// Package models contains GORM persistence models that map to database tables.
// They stay separate from domain entities so the domain layer carries no ORM
// tags; every model has ToDomain / FromDomain mappers used by the repositories.
//
// Structure:
// - base.go: shared columns (BaseModel, RealmModel, ExternalRefModel)
// - realm.go: realms and realm_sessions
// - queue.go: qbd_tasks
// - qbd.go: synchronized records (customers, invoices, item services, accounts)
package models
