// Package infra mapeia as entidades administrativas para a tabela única.
package infra

import (
	"time"

	"rental-backend/admin/domain"
	"rental-backend/store"
)

const (
	hostPrefix      = "HOST#"
	listingPrefix   = "LISTING#"
	planPrefix      = "PLAN#"
	locationPrefix  = "LOCATION#"
	documentPrefix  = "DOCUMENT#"
	publicMediaSK   = "PUBLIC#MEDIA#"
	hostStatusPK    = "HOST_STATUS#"
	listingStatusPK = "LISTING_STATUS#"

	skProfile  = "PROFILE"
	skMeta     = "META"
	skCounter  = "COUNTER"
	skPlace    = "PUBLIC#PLACE"
	skLocality = "PUBLIC#LOCALITY"

	planIndexPK = "PLAN"
)

// Prefixos de partição percorridos pelas migrações.
const (
	HostPartitionPrefix    = hostPrefix
	ListingPartitionPrefix = listingPrefix
	PlanPartitionPrefix    = planPrefix
)

func HostKey(id string) store.Key { return store.Key{PK: hostPrefix + id, SK: skProfile} }

func HostDocumentKey(hostID, docID string) store.Key {
	return store.Key{PK: hostPrefix + hostID, SK: documentPrefix + docID}
}

func ListingKey(id string) store.Key { return store.Key{PK: listingPrefix + id, SK: skMeta} }

func PublicPlaceKey(listingID string) store.Key {
	return store.Key{PK: listingPrefix + listingID, SK: skPlace}
}

func PublicLocalityKey(listingID string) store.Key {
	return store.Key{PK: listingPrefix + listingID, SK: skLocality}
}

func PublicMediaKey(listingID, mediaID string) store.Key {
	return store.Key{PK: listingPrefix + listingID, SK: publicMediaSK + mediaID}
}

func LocationCounterKey(locationID string) store.Key {
	return store.Key{PK: locationPrefix + locationID, SK: skCounter}
}

func PlanKey(id string) store.Key { return store.Key{PK: planPrefix + id, SK: skMeta} }

// IsHostProfile / IsListingMeta / IsPlanMeta reconhecem o item principal de cada partição.
func IsHostProfile(it store.Item) bool { return it.SK == skProfile }

func IsListingMeta(it store.Item) bool { return it.SK == skMeta }

func IsPlanMeta(it store.Item) bool { return it.SK == skMeta }

func HostStatusIndex(status domain.HostStatus, updatedAt time.Time, id string) (string, string) {
	return hostStatusPK + string(status), sortStamp(updatedAt) + "#" + id
}

func ListingStatusIndex(status domain.ListingStatus, updatedAt time.Time, id string) (string, string) {
	return listingStatusPK + string(status), sortStamp(updatedAt) + "#" + id
}

// PlanIndex agrupa todos os planos numa única partição do GSI1.
func PlanIndex(id string) (string, string) { return planIndexPK, id }

func ListingOwnerIndex(hostID, listingID string) (string, string) {
	return hostPrefix + hostID, listingPrefix + listingID
}

func sortStamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
