package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "ledenbeheer/internal/domain/audit"
	"ledenbeheer/internal/domain/compliance"
)

const importCSV = `ID,FIRST_NAME,LAST_NAME,EMAIL,FUNCTIONS,COMMITTEES,CURRENT,VOG_DATE,SHIRT_SIZE
1,Anna,de Vries,Anna@Example.org,Jeugdtrainer;Scheidsrechter,10;11,ja,2022-03-15,M
2,Bram,Bakker,,Donateur,,nee,,L
3,Cor,,not-an-email,,,,,
x,Dirk,Dekker,dirk@example.org,,,,,
4,Eva,Smit,eva@example.org,Bestuurslid,12,1,15-03-2021,S
`

func importDeps(vols *fakeVolunteers, recs *fakeRecords, auditStore *fakeAudit) ImportVolunteersDeps {
	return ImportVolunteersDeps{
		VolunteerStore: vols,
		RecordStore:    recs,
		AuditStore:     auditStore,
		Now:            func() time.Time { return bulkNow },
	}
}

func TestExecuteImportVolunteers_CreatesAndReportsRowErrors(t *testing.T) {
	vols := newFakeVolunteers()
	recs := newFakeRecords()
	auditStore := &fakeAudit{}

	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{Reader: strings.NewReader(importCSV)},
		importDeps(vols, recs, auditStore))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 2, res.SeededVOG)
	assert.Equal(t, []string{"SHIRT_SIZE"}, res.Unknown)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "invalid email")
	assert.Equal(t, 5, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Message, "id must be a positive number")

	anna := vols.byID[1]
	assert.Equal(t, "anna@example.org", anna.Email)
	assert.Equal(t, []string{"Jeugdtrainer", "Scheidsrechter"}, anna.Functions)
	assert.Equal(t, []int64{10, 11}, anna.CommitteeMemberships)
	assert.True(t, anna.Current)
	assert.False(t, vols.byID[2].Current)

	rec, ok := recs.get(1)
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC), rec.CertificateDate)
	rec, _ = recs.get(4)
	assert.Equal(t, time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC), rec.CertificateDate)

	require.Len(t, auditStore.events, 1)
	assert.Equal(t, auditDomain.ActionVolunteersImported, auditStore.events[0].Action)
}

func TestExecuteImportVolunteers_DryRunWritesNothing(t *testing.T) {
	vols := newFakeVolunteers()
	recs := newFakeRecords()
	auditStore := &fakeAudit{}

	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{Reader: strings.NewReader(importCSV), DryRun: true},
		importDeps(vols, recs, auditStore))
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 3, res.Created)
	assert.Empty(t, vols.byID)
	assert.Empty(t, recs.byID)
	assert.Empty(t, auditStore.events)
}

func TestExecuteImportVolunteers_ExistingSkippedUnlessUpdateMode(t *testing.T) {
	csvData := "ID,FIRST_NAME,EMAIL\n1,Anneke,anneke@example.org\n"

	vols := newFakeVolunteers(vol(1, "Anna", "anna@example.org"))
	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{Reader: strings.NewReader(csvData)},
		importDeps(vols, newFakeRecords(), &fakeAudit{}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "Anna", vols.byID[1].FirstName)

	res, err = ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{Reader: strings.NewReader(csvData), UpdateMode: true},
		importDeps(vols, newFakeRecords(), &fakeAudit{}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "Anneke", vols.byID[1].FirstName)
}

func TestExecuteImportVolunteers_KeepsRecordedCertificate(t *testing.T) {
	recorded := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	recs := newFakeRecords(compliance.Record{VolunteerID: 1, CertificateDate: recorded})

	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{
		Reader: strings.NewReader("ID,FIRST_NAME,VOG_DATE\n1,Anna,2020-01-01\n"),
	}, importDeps(newFakeVolunteers(), recs, &fakeAudit{}))
	require.NoError(t, err)

	assert.Zero(t, res.SeededVOG)
	rec, _ := recs.get(1)
	assert.Equal(t, recorded, rec.CertificateDate)
}

func TestExecuteImportVolunteers_MissingRequiredColumn(t *testing.T) {
	_, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{Reader: strings.NewReader("NAME,EMAIL\nAnna,a@example.org\n")},
		importDeps(newFakeVolunteers(), newFakeRecords(), &fakeAudit{}))

	var ve *ImportVolunteersValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "ID")
}

func TestExecuteImportVolunteers_SaveFailure(t *testing.T) {
	vols := newFakeVolunteers()
	vols.saveErr = errors.New("disk full")

	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{Reader: strings.NewReader("ID,FIRST_NAME\n1,Anna\n")},
		importDeps(vols, newFakeRecords(), &fakeAudit{}))
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "save failed (see server log)", res.Errors[0].Message)
	assert.Zero(t, res.Created)
}

func TestExecuteImportVolunteers_UpdateModeRecordsRenewedCertificate(t *testing.T) {
	vols := newFakeVolunteers()
	recs := newFakeRecords()
	deps := importDeps(vols, recs, &fakeAudit{})

	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{
		Reader: strings.NewReader("ID,FIRST_NAME,FUNCTIONS,VOG_DATE\n1,Anna,Jeugdtrainer,2020-01-10\n"),
	}, deps)
	require.NoError(t, err)
	require.Equal(t, 1, res.SeededVOG)

	rec, _ := recs.get(1)
	require.Equal(t, compliance.StageExpired, compliance.StageOf(true, rec, bulkNow))

	res, err = ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{
		Reader:     strings.NewReader("ID,FIRST_NAME,FUNCTIONS,VOG_DATE\n1,Anna,Jeugdtrainer,2024-05-01\n"),
		UpdateMode: true,
	}, deps)
	require.NoError(t, err)
	assert.Zero(t, res.SeededVOG)
	assert.Equal(t, 1, res.RenewedVOG)

	rec, _ = recs.get(1)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), rec.CertificateDate)
	assert.Equal(t, compliance.StageValid, compliance.StageOf(true, rec, bulkNow))
}

func TestExecuteImportVolunteers_UpdateModeIgnoresOlderCertificate(t *testing.T) {
	recorded := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	recs := newFakeRecords(compliance.Record{VolunteerID: 1, CertificateDate: recorded})

	res, err := ExecuteImportVolunteers(context.Background(), ImportVolunteersInput{
		Reader:     strings.NewReader("ID,FIRST_NAME,VOG_DATE\n1,Anna,2020-01-01\n"),
		UpdateMode: true,
	}, importDeps(newFakeVolunteers(vol(1, "Anna", "")), recs, &fakeAudit{}))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Zero(t, res.RenewedVOG)
	rec, _ := recs.get(1)
	assert.Equal(t, recorded, rec.CertificateDate)
}
