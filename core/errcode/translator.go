package errcode

import (
	"strings"

	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
)

const fallbackKey = "__fallback__"

var messages = map[string]map[string]string{
	"de": {
		fallbackKey:                        "Es ist ein Fehler aufgetreten ({0}).",
		Unspecified:                        "Es ist ein unbekannter Fehler aufgetreten.",
		NoEditableZuordnungLeft:            "Der Person würden keine bearbeitbaren Zuordnungen mehr bleiben.",
		NewerVersionOrganisation:           "Die Organisation wurde in der Zwischenzeit geändert. Bitte laden Sie die Seite neu.",
		NewerVersionOfPersonenkontexte:     "Die Zuordnungen wurden in der Zwischenzeit geändert. Bitte laden Sie die Seite neu.",
		KlassennameAnSchuleEindeutig:       "Der Klassenname ist an dieser Schule bereits vergeben.",
		RequiredStepUpLevelNotMet:          "Für diese Aktion ist eine Zwei-Faktor-Authentifizierung erforderlich.",
		BefristungRequired:                 "Für diese Rolle ist eine Befristung erforderlich.",
		InvalidPersonenkontextForRollenart: "Die Rolle kann einer Person mit Rollenart LERN nicht zugeordnet werden.",
		LernNotAtSchuleAndKlasse:           "Schülerinnen und Schüler müssen einer Schule und einer Klasse zugeordnet sein.",
		PersonNotFound:                     "Die Person wurde nicht gefunden.",
		EntityNotFound:                     "Der Eintrag wurde nicht gefunden.",
		MissingPermissions:                 "Sie haben nicht die erforderlichen Berechtigungen.",
		Unauthorized:                       "Ihre Sitzung ist abgelaufen. Bitte melden Sie sich erneut an.",
		PersonalnummerRequired:             "Für diese Rolle ist eine Personalnummer erforderlich.",
		OrganisationHasZuordnungen:         "Die Organisation hat noch Zuordnungen.",
		RolleNurAnPassendeOrganisationen:   "Die Rolle kann nur an passenden Organisationen vergeben werden.",
		PersonenkontextAnlageNotAuthorized: "Sie sind nicht berechtigt, diese Zuordnung anzulegen.",
		OperationRunning:                   "Es läuft bereits eine Massenbearbeitung.",
	},
	"en": {
		fallbackKey:                        "An error occurred ({0}).",
		Unspecified:                        "An unknown error occurred.",
		NoEditableZuordnungLeft:            "The person would have no editable assignments left.",
		NewerVersionOrganisation:           "The organisation was changed in the meantime. Please reload the page.",
		NewerVersionOfPersonenkontexte:     "The assignments were changed in the meantime. Please reload the page.",
		KlassennameAnSchuleEindeutig:       "The class name is already taken at this school.",
		RequiredStepUpLevelNotMet:          "This action requires two-factor authentication.",
		BefristungRequired:                 "This role requires an expiry date.",
		InvalidPersonenkontextForRollenart: "The role cannot be assigned to a learner.",
		LernNotAtSchuleAndKlasse:           "Learners must be assigned to a school and a class.",
		PersonNotFound:                     "The person was not found.",
		EntityNotFound:                     "The entry was not found.",
		MissingPermissions:                 "You do not have the required permissions.",
		Unauthorized:                       "Your session has expired. Please log in again.",
		PersonalnummerRequired:             "This role requires a personnel number.",
		OrganisationHasZuordnungen:         "The organisation still has assignments.",
		RolleNurAnPassendeOrganisationen:   "The role can only be assigned at matching organisations.",
		PersonenkontextAnlageNotAuthorized: "You are not allowed to create this assignment.",
		OperationRunning:                   "A bulk operation is already running.",
	},
}

// Translator turns error codes into messages.
type Translator struct {
	uni           *ut.UniversalTranslator
	defaultLocale string
}

// NewTranslator returns a Translator for `de` and `en`; unsupported locales fall back to `defaultLocale`.
func NewTranslator(defaultLocale string) (*Translator, error) {
	_de := de.New()
	uni := ut.New(_de, _de, en.New())

	for locale, msgs := range messages {
		trans, _ := uni.GetTranslator(locale)
		for code, text := range msgs {
			if err := trans.Add(code, text, false); err != nil {
				return nil, errors.Wrapf(err, "errcode.Add(%s, %s)", locale, code)
			}
		}
	}

	if _, ok := messages[defaultLocale]; !ok {
		defaultLocale = "de"
	}
	return &Translator{uni: uni, defaultLocale: defaultLocale}, nil
}

func (t *Translator) translator(locale string) ut.Translator {
	if _, ok := messages[locale]; !ok {
		locale = t.defaultLocale
	}
	trans, _ := t.uni.GetTranslator(locale)
	return trans
}

// Translate returns the message for `code` in `locale`.
// Unknown codes get the generic message annotated with the raw code.
func (t *Translator) Translate(code, locale string) string {
	trans := t.translator(strings.ToLower(locale))
	code = strings.TrimSpace(code)
	if code == "" {
		code = Unspecified
	}
	if msg, err := trans.T(code); err == nil {
		return msg
	}
	msg, _ := trans.T(fallbackKey, code)
	return msg
}

// Message translates the code extracted from `err`.
func (t *Translator) Message(err error, locale string) string {
	return t.Translate(Extract(err), locale)
}
